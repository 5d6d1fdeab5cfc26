package routeros

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	ros "github.com/go-routeros/routeros/v3"
	"github.com/go-routeros/routeros/v3/proto"
)

// fakeRouter is an in-memory stand-in for the RouterOS API.
type fakeRouter struct {
	mu     sync.Mutex
	seq    int
	tables map[string][]map[string]string
	calls  [][]string
	fail   map[string]error
	block  map[string]chan struct{}
	closed int
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		tables: map[string][]map[string]string{},
		fail:   map[string]error{},
		block:  map[string]chan struct{}{},
	}
}

func trap(msg string) error {
	return &ros.DeviceError{Sentence: &proto.Sentence{Word: "!trap", Map: map[string]string{"message": msg}}}
}

func (f *fakeRouter) seed(path string, row map[string]string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("*%X", f.seq)
	row[".id"] = id
	f.tables[path] = append(f.tables[path], row)
	return id
}

func (f *fakeRouter) rows(path string) []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.tables[path]...)
}

func (f *fakeRouter) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c[0])
	}
	return out
}

func (f *fakeRouter) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRouter) RunArgs(words []string) (*ros.Reply, error) {
	cmd := words[0]

	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), words...))
	blockCh := f.block[cmd]
	failErr := f.fail[cmd]
	f.mu.Unlock()

	if blockCh != nil {
		<-blockCh
	}
	if failErr != nil {
		return nil, failErr
	}

	idx := strings.LastIndex(cmd, "/")
	path, verb := cmd[:idx], cmd[idx+1:]

	attrs := map[string]string{}
	query := map[string]string{}
	for _, w := range words[1:] {
		switch {
		case strings.HasPrefix(w, "="):
			k, v, _ := strings.Cut(w[1:], "=")
			attrs[k] = v
		case strings.HasPrefix(w, "?"):
			k, v, _ := strings.Cut(w[1:], "=")
			query[k] = v
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch verb {
	case "print":
		reply := &ros.Reply{Done: &proto.Sentence{Word: "!done", Map: map[string]string{}}}
		for _, row := range f.tables[path] {
			if matches(row, query) {
				cp := map[string]string{}
				for k, v := range row {
					cp[k] = v
				}
				reply.Re = append(reply.Re, &proto.Sentence{Word: "!re", Map: cp})
			}
		}
		return reply, nil
	case "add":
		for _, row := range f.tables[path] {
			if name, ok := attrs["name"]; ok && row["name"] == name {
				return nil, trap("failure: item with such name already exists")
			}
		}
		f.seq++
		id := fmt.Sprintf("*%X", f.seq)
		attrs[".id"] = id
		f.tables[path] = append(f.tables[path], attrs)
		return &ros.Reply{Done: &proto.Sentence{Word: "!done", Map: map[string]string{"ret": id}}}, nil
	case "set":
		for _, row := range f.tables[path] {
			if row[".id"] == attrs[".id"] {
				for k, v := range attrs {
					row[k] = v
				}
				return &ros.Reply{Done: &proto.Sentence{Word: "!done", Map: map[string]string{}}}, nil
			}
		}
		return nil, trap("no such item")
	case "remove":
		rows := f.tables[path]
		for i, row := range rows {
			if row[".id"] == attrs[".id"] {
				f.tables[path] = append(rows[:i:i], rows[i+1:]...)
				return &ros.Reply{Done: &proto.Sentence{Word: "!done", Map: map[string]string{}}}, nil
			}
		}
		return nil, trap("no such item")
	}
	return nil, trap("no such command")
}

func matches(row, query map[string]string) bool {
	for k, v := range query {
		if row[k] != v {
			return false
		}
	}
	return true
}

func names(rows []map[string]string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["name"])
	}
	sort.Strings(out)
	return out
}
