package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	args  [][]string
	sent  []string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	return f.record("register", nil)
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) Sessions(ctx context.Context) error { return f.record("sessions", nil) }
func (f *fakeExec) New(ctx context.Context, args []string) error {
	return f.record("new", args)
}
func (f *fakeExec) Open(ctx context.Context, args []string) error {
	return f.record("open", args)
}
func (f *fakeExec) Rename(ctx context.Context, args []string) error {
	return f.record("rename", args)
}
func (f *fakeExec) Delete(ctx context.Context, args []string) error {
	return f.record("delete", args)
}
func (f *fakeExec) Export(ctx context.Context) error { return f.record("export", nil) }
func (f *fakeExec) Workspace(ctx context.Context, args []string) error {
	return f.record("workspace", args)
}
func (f *fakeExec) Send(ctx context.Context, line string) error {
	f.sent = append(f.sent, line)
	return f.record("send", nil)
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var printed []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		printed = append(printed, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &printed
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	silence(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"sessions",
		"login",
		"help",
		"sessions",
		"new Trip plans",
		"open 2",
		"   what is the capital of France?  ",
		"rename Paris",
		"delete",
		"export",
		"workspace w2",
		"logout",
		"hello",
		"exit",
		"login",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewScanner(input))

	assert.Equal(t, []string{
		"login", "sessions", "new", "open", "send", "rename", "delete", "export", "workspace", "logout",
	}, exec.calls)
	assert.Equal(t, []string{"what is the capital of France?"}, exec.sent)
	assert.Equal(t, []string{"Trip", "plans"}, exec.args[2])
	assert.Equal(t, []string{"2"}, exec.args[3])
}

func TestRunREPL_UnknownWhileAnonymous(t *testing.T) {
	printed := silence(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(strings.NewReader("hello\nquit\n")))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *printed, "Unknown command: hello (type 'help')")
	assert.Contains(t, *printed, "Bye!")
}

func TestRunREPL_HelpDependsOnSignIn(t *testing.T) {
	printed := silence(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "" }, bufio.NewScanner(strings.NewReader("help\n")))
	assert.Contains(t, *printed, helpAnonymous)

	*printed = nil
	runREPL(context.Background(), &fakeExec{loggedIn: true}, func() string { return "" }, bufio.NewScanner(strings.NewReader("help\n")))
	assert.Contains(t, *printed, helpSignedIn)
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	silence(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("login\n")))
	assert.Empty(t, exec.calls)
}
