package iocli

import (
	"bufio"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStdio(input string) (*Stdio, *strings.Builder, *strings.Builder) {
	var out, prompt strings.Builder
	return &Stdio{
		in:     bufio.NewReader(strings.NewReader(input)),
		out:    &out,
		prompt: &prompt,
		inFd:   -1,
		outFd:  -1,
	}, &out, &prompt
}

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	assert.NotNil(t, NewStdio())
}

func TestStdio_Output(t *testing.T) {
	s, out, _ := newTestStdio("")

	s.Println("hello", "world")
	s.Printf("test %d %s\n", 1, "abc")
	n, err := s.Write([]byte(`{"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, 7, n)
	assert.Equal(t, "hello world\ntest 1 abc\n{\"a\":1}", out.String())
	assert.False(t, s.IsTerminal())
}

func TestStdio_ReadInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "line", input: "user input\n", want: "user input"},
		{name: "trims spaces", input: "  notes  \n", want: "notes"},
		{name: "last line without newline", input: "notes", want: "notes"},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out, prompt := newTestStdio(tt.input)
			got, err := s.ReadInput("Prompt: ")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			// Приглашение не попадает в stdout
			assert.Equal(t, "Prompt: ", prompt.String())
			assert.Empty(t, out.String())
		})
	}
}

// Без терминала пароль читается как обычная строка
func TestStdio_ReadPassword_NotTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	go func() {
		_, _ = w.Write([]byte("secret\n"))
		_ = w.Close()
	}()

	s, _, _ := newTestStdio("")
	s.in = bufio.NewReader(r)
	s.inFd = int(r.Fd())

	got, err := s.ReadPassword("Passphrase: ")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}
