package ctxutil

import "context"

type instructorKey struct{}

// InstructorData identifies the caller when bearer auth is enabled.
type InstructorData struct {
	InstructorID string
	Name         string
}

func WithInstructor(ctx context.Context, in *InstructorData) context.Context {
	return context.WithValue(ctx, instructorKey{}, in)
}

func GetInstructor(ctx context.Context) *InstructorData {
	if in, ok := ctx.Value(instructorKey{}).(*InstructorData); ok {
		return in
	}
	return nil
}
