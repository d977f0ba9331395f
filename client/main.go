// The MIT License (MIT)
//
// # Copyright (c) 2025 vkuzn
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/urfave/cli"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "chatrelay-client"
	myApp.Usage = "terminal client for the chat relay server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "remoteaddr,r",
			Value: "localhost:50000",
			Usage: "chat relay server address",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "to suppress the connect/disconnect messages",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		logln := func(v ...any) {
			if !c.Bool("quiet") {
				log.Println(v...)
			}
		}

		conn, err := net.Dial("tcp", c.String("remoteaddr"))
		if err != nil {
			log.Fatalf("%+v", err)
		}
		defer conn.Close()
		logln("connected to", conn.RemoteAddr())

		errUp, errDown := pipe(conn, os.Stdin, os.Stdout)
		if errUp != nil && errUp != io.EOF {
			logln("send:", errUp)
		}
		if errDown != nil && errDown != io.EOF {
			logln("recv:", errDown)
		}
		logln("connection closed")
		return nil
	}
	myApp.Run(os.Args)
}

// pipe copies the terminal onto the connection in both directions and
// returns when the server side is done. The stdin copy cannot be unblocked
// portably, so only the connection is closed on exit.
func pipe(conn net.Conn, in io.Reader, out io.Writer) (errUp, errDown error) {
	var closed sync.Once

	up := make(chan error, 1)
	go func() {
		_, err := io.Copy(conn, in)
		closed.Do(func() { conn.Close() })
		up <- err
	}()

	_, errDown = io.Copy(out, conn)
	closed.Do(func() { conn.Close() })

	select {
	case errUp = <-up:
	default:
		// stdin copy still parked on the terminal; process exit reaps it
	}
	return errUp, errDown
}
