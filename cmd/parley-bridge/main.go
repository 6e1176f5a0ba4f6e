// Command parley-bridge exposes a serve-mode parley subprocess over a
// WebSocket, so clients without a stdio transport can speak the same
// JSON-RPC protocol. Each connection gets its own subprocess.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8080", "Address to listen on")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Remaining arguments name the subprocess to bridge.
	command := flag.Args()
	if len(command) == 0 {
		command = []string{"parley", "-serve"}
	}

	http.HandleFunc("/ws", handleWS(command))

	slog.Info("websocket bridge listening", "addr", *addr, "path", "/ws", "command", command)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		slog.Error("bridge server failed", "error", err)
		os.Exit(1)
	}
}

// frame is the envelope a bridged line travels in, tagged with the stream it
// came from.
type frame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func handleWS(command []string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		cmd := exec.Command(command[0], command[1:]...)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			slog.Error("could not open subprocess stdin", "error", err)
			return
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			slog.Error("could not open subprocess stdout", "error", err)
			return
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			slog.Error("could not open subprocess stderr", "error", err)
			return
		}

		if err := cmd.Start(); err != nil {
			slog.Error("could not start subprocess", "command", command, "error", err)
			return
		}
		slog.Info("subprocess started", "pid", cmd.Process.Pid)

		// One lock guards the socket against the two forwarding goroutines.
		var writeLock sync.Mutex
		go forward(conn, &writeLock, "stdout", stdout)
		go forward(conn, &writeLock, "stderr", stderr)

		// Socket messages become lines on the subprocess's stdin.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				slog.Info("websocket closed", "error", err)
				break
			}
			if _, err := stdin.Write(append(msg, '\n')); err != nil {
				slog.Error("subprocess stdin write failed", "error", err)
				break
			}
		}

		// Closing stdin is the subprocess's EOF signal; it exits on its own.
		stdin.Close()
		if err := cmd.Wait(); err != nil {
			slog.Warn("subprocess exited with error", "error", err)
		}
	}
}

// forward copies newline-delimited subprocess output to the socket, one
// frame per line.
func forward(conn *websocket.Conn, writeLock *sync.Mutex, streamName string, stream io.Reader) {
	scanner := bufio.NewScanner(stream)
	// Protocol lines can carry inlined file contents, so allow long ones.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		payload, err := json.Marshal(frame{Type: streamName, Data: scanner.Text()})
		if err != nil {
			slog.Error("frame marshal failed", "error", err)
			return
		}
		writeLock.Lock()
		err = conn.WriteMessage(websocket.TextMessage, payload)
		writeLock.Unlock()
		if err != nil {
			slog.Error("websocket write failed", "stream", streamName, "error", err)
			return
		}
	}
}
