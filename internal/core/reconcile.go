package core

import "github.com/dkeye/Whisper/internal/domain"

// ApplyMessage folds incoming into log. An entry with the same id is
// replaced at its index, otherwise incoming is appended. log is not
// modified.
func ApplyMessage(log []domain.Message, incoming domain.Message) []domain.Message {
	out := make([]domain.Message, len(log), len(log)+1)
	copy(out, log)
	for i := range out {
		if out[i].ID == incoming.ID {
			out[i] = incoming
			return out
		}
	}
	return append(out, incoming)
}
