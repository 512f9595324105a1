package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"ollamaproxy/internal/chat"
	"ollamaproxy/pkg/types"
)

const replPrompt = "Chat > "

// defaultPersona is the system prompt repl sends unless --system is given.
const defaultPersona = `You are an enthusiastic and knowledgeable music lover with a deep passion
for all genres of music. You have:
- Extensive knowledge of music history, theory, and appreciation
- Personal experience attending countless concerts and musical performances
- A collection of thousands of albums across various genres
- Strong opinions about music while remaining respectful of others' tastes
- A warm, engaging personality that loves sharing musical discoveries
- The ability to explain complex musical concepts in an accessible way

Please maintain this personality in all your responses, sharing your enthusiasm
and personal perspective while being informative and engaging.`

// lineReader yields one input line per call; io.EOF ends the session.
type lineReader interface {
	ReadLine() (string, error)
}

// scanLines reads newline-terminated input and prints the prompt before each line.
type scanLines struct {
	sc     *bufio.Scanner
	out    io.Writer
	prompt string
}

func (s *scanLines) ReadLine() (string, error) {
	fmt.Fprint(s.out, s.prompt)
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.sc.Text(), nil
}

// openLineReader puts a terminal stdin into raw mode behind an x/term line
// editor (arrow-key recall included) and falls back to line scanning for
// pipes and files. Output must go through the returned writer until restore.
func openLineReader(in io.Reader, out io.Writer) (lineReader, io.Writer, func(), error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("raw terminal: %w", err)
		}
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, out}, replPrompt)
		return t, t, func() { _ = term.Restore(fd, state) }, nil
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &scanLines{sc: sc, out: out, prompt: replPrompt}, out, func() {}, nil
}

// runREPL checks the upstream once, then sends every non-blank line as an
// independent exchange (system prompt plus that line) until EOF or /exit.
func runREPL(ctx context.Context, svc *chat.Service, in io.Reader, out io.Writer, system string) error {
	hr := svc.HealthCheck(ctx)
	printHealth(out, hr)
	if hr.Status != types.HealthOK {
		return errUnhealthy
	}

	lines, w, restore, err := openLineReader(in, out)
	if err != nil {
		return err
	}
	defer restore()

	fmt.Fprintf(w, "\nInteractive chat with %s.\n", svc.Model())
	fmt.Fprintln(w, "/history lists your input, /exit or Ctrl+D quits.")
	fmt.Fprintln(w)

	hist := newHistory(maxHistory)
	for ctx.Err() == nil {
		line, err := lines.ReadLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return err
		}
		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}
		hist.Add(line)
		switch cmd {
		case "/exit", "/quit":
			return nil
		case "/history":
			for i, e := range hist.Entries() {
				fmt.Fprintf(w, "%4d  %s\n", i+1, e)
			}
			continue
		}
		printReply(w, svc.Chat(ctx, types.ChatRequest{Message: line, SystemPrompt: system}))
		fmt.Fprintln(w)
	}
	return nil
}
