package snowflake

import (
	"context"
	"fmt"

	"github.com/visionstage/diagram-agent/internal/domain"
)

// MockStage is a stand-in for the stage uploader, useful for local
// development without a warehouse.
type MockStage struct {
	StageName string

	// Uploads records every staged filename, newest last.
	Uploads []string
}

func NewMockStage() *MockStage {
	return &MockStage{StageName: "network_diagrams"}
}

func (m *MockStage) Upload(ctx context.Context, filename string, contents []byte) (domain.StagedFile, error) {
	name := sanitizeFilename(filename)
	m.Uploads = append(m.Uploads, name)
	return domain.StagedFile{
		Name: name,
		Ref:  "@" + m.StageName + "/" + name,
	}, nil
}

// MockCompleter echoes the question back, standing in for the Cortex call.
type MockCompleter struct {
	// Questions records every question asked, newest last.
	Questions []string
	// StagedNames records the staged filename each question referenced.
	StagedNames []string
}

func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

func (m *MockCompleter) Complete(ctx context.Context, question string, stagedName string) (string, error) {
	m.Questions = append(m.Questions, question)
	m.StagedNames = append(m.StagedNames, stagedName)
	return fmt.Sprintf("Looking at %s: you asked %q. This is a mock answer.", stagedName, question), nil
}
