package model

// Flags represents the command line flags.
type Flags struct {
	Accounts    []string
	OwnersFile  string
	ReportFile  string
	Output      string
	Profile     string
	Region      string
	Workers     int
	MaxAttempts int
	FailFast    bool
	Sort        bool
	Store       bool
	DBPath      string
	Version     bool
}
