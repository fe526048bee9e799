package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	isConnected bool
	calls       []string
}

func (f *fakeExec) record(call string) error {
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeExec) connected() bool { return f.isConnected }
func (f *fakeExec) Connect(_ context.Context, path string) error {
	f.isConnected = true
	return f.record("connect " + path)
}
func (f *fakeExec) Disconnect(context.Context) error {
	f.isConnected = false
	return f.record("disconnect")
}
func (f *fakeExec) SetCreator(_ context.Context, creator string) error {
	return f.record("creator " + creator)
}
func (f *fakeExec) SetAmount(_ context.Context, amount string) error {
	return f.record("amount " + amount)
}
func (f *fakeExec) Initialize(context.Context) error { return f.record("initialize") }
func (f *fakeExec) Tip(context.Context) error        { return f.record("tip") }
func (f *fakeExec) Withdraw(context.Context) error   { return f.record("withdraw") }
func (f *fakeExec) Vault(_ context.Context, authority string) error {
	return f.record("vault " + authority)
}
func (f *fakeExec) Status(context.Context) error { return f.record("status") }

func silence(t *testing.T) *[]string {
	t.Helper()
	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = fmt.Sprint(v)
		}
		out = append(out, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &out
}

func TestRunREPL_Dispatch(t *testing.T) {
	out := silence(t)
	input := strings.NewReader(strings.Join([]string{
		"help",
		"connect /tmp/id.json",
		"",
		"creator ABC",
		"amount 0.1",
		"init",
		"tip",
		"withdraw",
		"vault",
		"vault XYZ",
		"status",
		"disconnect",
		"foobar",
		"exit",
		"tip",
	}, "\n"))
	exec := &fakeExec{}

	runREPL(context.Background(), exec, false, bufio.NewScanner(input))

	assert.Equal(t, []string{
		"connect /tmp/id.json",
		"creator ABC",
		"amount 0.1",
		"initialize",
		"tip",
		"withdraw",
		"vault ",
		"vault XYZ",
		"status",
		"disconnect",
	}, exec.calls)
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_EOF(t *testing.T) {
	silence(t)
	exec := &fakeExec{}
	runREPL(context.Background(), exec, false, bufio.NewScanner(strings.NewReader("tip")))
	assert.Equal(t, []string{"tip"}, exec.calls)
}

func TestRunREPL_Cancelled(t *testing.T) {
	silence(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExec{}
	runREPL(ctx, exec, false, bufio.NewScanner(strings.NewReader("tip\n")))
	assert.Empty(t, exec.calls)
}
