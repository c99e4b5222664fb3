package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code has no live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrInvalidName is returned when a display name is empty after trimming.
	ErrInvalidName = errors.New("invalid name")
	// ErrNameTaken is returned when a display name is already claimed in the room.
	ErrNameTaken = errors.New("name already taken in this room")
	// ErrInvalidQuiz indicates a quiz document failed validation.
	ErrInvalidQuiz = errors.New("invalid quiz document")
	// ErrQuizNotFound indicates the quiz content could not be loaded from the library.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionActive is returned when a quiz is replaced while a question is running.
	ErrQuestionActive = errors.New("question in progress")
	// ErrServiceStopped is returned once the dispatch loop has exited.
	ErrServiceStopped = errors.New("quiz service stopped")
	// ErrInternal wraps a recovered fault inside a single room operation.
	ErrInternal = errors.New("internal error")
)

// Join error reason codes sent to players.
const (
	ReasonRoomNotFound = "room-not-found"
	ReasonInvalidName  = "invalid-name"
	ReasonNameTaken    = "name-taken"
)

// JoinReason maps a join error onto its wire reason code.
func JoinReason(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return ReasonRoomNotFound
	case errors.Is(err, ErrInvalidName):
		return ReasonInvalidName
	case errors.Is(err, ErrNameTaken):
		return ReasonNameTaken
	default:
		return "internal"
	}
}
