package controllers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"venting/models"
	"venting/services"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

const (
	persona       = "Gabriel"
	exportCommand = "export_chat_history"
	safetyMessage = "I hear you. I’m not able to go into that safely. " +
		"If you’re in immediate danger, please contact local emergency services. " +
		"If you’d like, I can share professional resources."
)

var ErrInputClosed = errors.New("input closed before quit")

type Moderator interface {
	Moderate(ctx context.Context, text string) bool
}

type Responder interface {
	Respond(ctx context.Context, history []models.Message) string
}

type TranscriptExporter interface {
	Export(ctx context.Context, history []models.Message) (string, error)
}

// Session is the single-user terminal dialogue. It owns the conversation.
type Session struct {
	in       *bufio.Reader
	out      io.Writer
	conv     *services.Conversation
	gate     Moderator
	model    Responder
	exporter TranscriptExporter
}

func NewSession(in io.Reader, out io.Writer, conv *services.Conversation, gate Moderator, model Responder, exporter TranscriptExporter) *Session {
	return &Session{
		in:       bufio.NewReader(in),
		out:      out,
		conv:     conv,
		gate:     gate,
		model:    model,
		exporter: exporter,
	}
}

// Run reads one line at a time until quit/exit. It returns ErrInputClosed if
// input ends first, or the export error if writing a transcript fails.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprint(s.out, "Venting GPT (type 'quit' to exit)\n\n")

	for {
		fmt.Fprint(s.out, "You: ")
		line, err := s.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return ErrInputClosed
			}
			return errors.Wrap(err, "reading input")
		}

		done, err := s.dispatch(ctx, strings.TrimSpace(line))
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (s *Session) dispatch(ctx context.Context, input string) (bool, error) {
	command := strings.ToLower(input)
	switch {
	case input == "":
		return false, nil
	case command == exportCommand:
		path, err := s.exporter.Export(ctx, s.conv.Messages())
		if err != nil {
			return false, err
		}
		s.say("Chat history exported to " + path)
		return false, nil
	case command == "quit", command == "exit":
		fmt.Fprintln(s.out, "Goodbye!")
		return true, nil
	}

	if s.gate.Moderate(ctx, input) {
		s.say(safetyMessage)
		return false, nil
	}

	if err := s.conv.Append(models.Message{Role: models.RoleUser, Content: input}); err != nil {
		return false, err
	}
	reply := s.model.Respond(ctx, s.conv.Messages())
	s.say(reply)
	if err := s.conv.Append(models.Message{Role: models.RoleAssistant, Content: reply}); err != nil {
		return false, err
	}
	if s.conv.Trim() {
		log.Debug("Trimmed conversation", "len", s.conv.Len())
	}
	return false, nil
}

func (s *Session) say(text string) {
	fmt.Fprintf(s.out, "%s: %s\n\n", persona, text)
}
