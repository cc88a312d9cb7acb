package lesson

// Action is the booking operation available to a viewer for one lesson.
type Action string

const (
	ActionBook         Action = "book"
	ActionJoinWaitlist Action = "joinWaitlist"
	ActionClosed       Action = "closed"
	ActionModify       Action = "modify"
)

func (a Action) String() string {
	return string(a)
}
