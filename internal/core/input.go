package core

import "github.com/rs/zerolog/log"

type InputField int

const (
	FieldUserID InputField = iota
	FieldNewMessage
)

func (f InputField) String() string {
	switch f {
	case FieldUserID:
		return "userId"
	case FieldNewMessage:
		return "newMessage"
	default:
		return "unknown"
	}
}

var inputSetters = map[InputField]func(Session, string) Session{
	FieldUserID: func(s Session, v string) Session {
		s.UserIDInput = v
		return s
	},
	FieldNewMessage: func(s Session, v string) Session {
		s.PendingInput = v
		return s
	},
}

func setInput(s Session, field InputField, value string) Session {
	set, ok := inputSetters[field]
	if !ok {
		log.Warn().Str("module", "core.session").Int("field", int(field)).Msg("unknown input field")
		return s
	}
	return set(s, value)
}
