package domain

// Inbound message types.
const (
	MsgCreateRoom  = "host:createRoom"
	MsgSetQuiz     = "host:setQuiz"
	MsgLoadQuiz    = "host:loadQuiz"
	MsgStart       = "host:start"
	MsgNext        = "host:next"
	MsgEndQuestion = "host:endQuestion"
	MsgJoin        = "player:join"
	MsgAnswer      = "player:answer"
	MsgLeave       = "player:leave"
)

// Outbound event types.
const (
	EventRoomCreated    = "host:roomCreated"
	EventHostError      = "host:error"
	EventRoomMeta       = "room:meta"
	EventStarted        = "room:started"
	EventRoster         = "room:players"
	EventQuestion       = "q:show"
	EventHostQuestion   = "host:q:show"
	EventAnswerProgress = "host:answer:update"
	EventQuestionEnded  = "q:ended"
	EventHostEnded      = "host:q:ended"
	EventQuizEnded      = "quiz:ended"
	EventRoomClosed     = "room:closed"
	EventJoinError      = "player:error"
	EventJoined         = "player:joined"
	EventAnswerAck      = "player:answer:received"
)

// Event is an outbound message addressed to a room or a single connection.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RoomCreated is sent to the host after createRoom.
type RoomCreated struct {
	Code string `json:"code"`
}

// RoomMeta is broadcast after a quiz document is loaded.
type RoomMeta struct {
	Title  string `json:"title"`
	QCount int    `json:"qCount"`
}

// QuestionView is the player-safe view of the active question.
type QuestionView struct {
	Index   int          `json:"index"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"question"`
	Options []string     `json:"options,omitempty"`
	Time    *int         `json:"time"`
}

// HostQuestionView extends QuestionView with the correct answer.
type HostQuestionView struct {
	QuestionView
	Answer   *int     `json:"answer,omitempty"`
	Accepted []string `json:"answers,omitempty"`
}

// AnswerProgress tells the host how many players have answered.
type AnswerProgress struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// QuestionEnded is broadcast to the room when a question closes.
type QuestionEnded struct {
	Index       int              `json:"index"`
	Correct     Reveal           `json:"correct"`
	Leaderboard []LeaderboardRow `json:"leaderboard"`
	AnswerStats AnswerStats      `json:"answerStats"`
}

// HostQuestionEnded is sent to the host only with the per-player answers.
type HostQuestionEnded struct {
	Index   int            `json:"index"`
	Correct Reveal         `json:"correct"`
	Answers []AnswerDetail `json:"answers"`
}

// QuizEnded carries the final leaderboard.
type QuizEnded struct {
	Leaderboard []LeaderboardRow `json:"leaderboard"`
}

// JoinError is sent to a player whose join was rejected.
type JoinError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// JoinAck is sent to a player after a successful join.
type JoinAck struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// AnswerAck is sent privately to the submitting player.
type AnswerAck struct {
	Correct bool `json:"correct"`
}

// ErrorMessage carries a host-facing validation failure.
type ErrorMessage struct {
	Message string `json:"message"`
}
