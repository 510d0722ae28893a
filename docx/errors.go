package docx

import (
	"errors"
	"fmt"
)

// ErrTemplateStructure matches every error raised while loading,
// parsing, rewriting or writing a package.
var ErrTemplateStructure = errors.New("template structure error")

// StructureError describes a failed package operation.
type StructureError struct {
	Op   string
	Part string
	Err  error
}

func (e *StructureError) Error() string {
	switch {
	case e.Part != "" && e.Err != nil:
		return fmt.Sprintf("docx %s %s: %v", e.Op, e.Part, e.Err)
	case e.Part != "":
		return fmt.Sprintf("docx %s %s", e.Op, e.Part)
	case e.Err != nil:
		return fmt.Sprintf("docx %s: %v", e.Op, e.Err)
	}
	return "docx " + e.Op
}

func (e *StructureError) Unwrap() error { return e.Err }

// Is reports every StructureError as ErrTemplateStructure.
func (e *StructureError) Is(target error) bool {
	return target == ErrTemplateStructure
}

func structureErr(op, part string, err error) error {
	var se *StructureError
	if errors.As(err, &se) {
		return err
	}
	return &StructureError{Op: op, Part: part, Err: err}
}
