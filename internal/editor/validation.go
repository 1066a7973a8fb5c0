package editor

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a document input before any transaction starts.
func (in DocumentInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	switch in.Kind {
	case DocumentKindManual:
		if len(in.GLLines) < 2 {
			return errors.New("editor: manual document requires journal lines")
		}
	default:
		if len(in.Lines) == 0 {
			return errors.New("editor: document requires at least one line")
		}
		if in.CounterAccount == "" {
			return errors.New("editor: counter account required")
		}
	}
	return nil
}
