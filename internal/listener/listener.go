// Package listener owns the terminal for the interactive chat: line input
// with history, yes/no confirmations, and printing above the prompt.
package listener

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// ErrQuit is returned by ReadLine on Ctrl+C or Ctrl+D.
var ErrQuit = errors.New("input closed")

var rl *readline.Instance
var mu sync.Mutex

// Init opens the terminal. historyFile may be empty.
func Init(prompt, historyFile string) error {
	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	return err
}

func Close() {
	if rl != nil {
		_ = rl.Close()
	}
}

// PromptFor returns the chat prompt for a mode name.
func PromptFor(mode string) string {
	return mode + "> "
}

func SetPrompt(p string) {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		rl.SetPrompt(p)
	}
}

func printAboveUnlocked(s string) {
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte(s + "\n"))
	rl.Refresh()
}

func PrintAbove(s string) {
	mu.Lock()
	defer mu.Unlock()
	printAboveUnlocked(s)
}

// ReadLine returns the next trimmed line, or ErrQuit when the user closes
// the input.
func ReadLine() (string, error) {
	if rl == nil {
		return "", ErrQuit
	}
	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrQuit
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func GetConfirmation(prompt string) string {
	if rl == nil {
		return ""
	}
	mu.Lock()
	old := rl.Config.Prompt
	rl.SetPrompt(prompt)
	mu.Unlock()

	line, err := rl.Readline()
	if err != nil {
		line = ""
	}
	ans := strings.TrimSpace(strings.ToLower(line))

	mu.Lock()
	rl.SetPrompt(old)
	mu.Unlock()
	return ans
}

// AskYesNo repeats the question until it gets y/yes or n/no. A closed input
// counts as no.
func AskYesNo(question string) bool {
	PrintAbove(question + " [y/n]")

	for attempts := 0; attempts < 5; attempts++ {
		switch GetConfirmation("> ") {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		PrintAbove("Please answer y/n.")
	}
	return false
}
