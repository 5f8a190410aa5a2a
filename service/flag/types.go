package flag

import "github.com/thirukguru/aws-ic-report/model"

type service struct{}

// Service is the interface for command-line flag parsing.
type Service interface {
	GetParsedFlags() (model.Flags, error)
}
