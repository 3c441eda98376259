package engine

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeEngine accepts connections and answers every line with "done" + END,
// recording what it received.
type fakeEngine struct {
	ln    net.Listener
	mu    sync.Mutex
	lines []string
	wg    sync.WaitGroup
}

func startFakeEngine(t *testing.T) *fakeEngine {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeEngine{ln: ln}
	f.wg.Add(1)
	go f.serve()
	t.Cleanup(func() {
		ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakeEngine) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			defer conn.Close()
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				line := sc.Text()
				f.mu.Lock()
				f.lines = append(f.lines, line)
				f.mu.Unlock()
				if line == "quit" {
					conn.Write([]byte("Bye!\n"))
					return
				}
				conn.Write([]byte("done\r\nEND\r\n"))
			}
		}()
	}
}

func (f *fakeEngine) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func TestTelnetExec(t *testing.T) {
	f := startFakeEngine(t)
	ch := NewTelnet(Config{Addr: f.ln.Addr().String(), Attempts: 1, Settle: time.Millisecond}, zerolog.Nop())

	err := ch.Exec(context.Background(),
		Push(BoxQueue, "/media/a.mp3"),
		SetVar(PreShowEnabledVar, true),
	)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(f.received()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := strings.Join(f.received(), "|")
	want := "box_q.push /media/a.mp3|var.set interrupting_preshow_enabled = true|quit"
	if got != want {
		t.Fatalf("engine received %q, want %q", got, want)
	}
}

func TestTelnetConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ch := NewTelnet(Config{Addr: addr, Attempts: 2, Timeout: 200 * time.Millisecond}, zerolog.Nop())
	if err := ch.Exec(context.Background(), Skip(InterruptingPreShowQueue)); !errors.Is(err, ErrConnect) {
		t.Fatalf("err = %v, want ErrConnect", err)
	}
}

func TestCommandBuilders(t *testing.T) {
	cases := map[string]string{
		Push(InterruptingShowQueue, "/m/x.mp3"): "interrupting_show_q.push /m/x.mp3",
		SetVar(PreShowEnabledVar, false):        "var.set interrupting_preshow_enabled = false",
		Skip(InterruptingPreShowQueue):          "interrupting_preshow_q.skip",
		RemoveAll(PreShowFillerQueue):           "interrupting_preshow_filler.removeall()",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("command = %q, want %q", got, want)
		}
	}
}
