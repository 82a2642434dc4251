package domain

// EventType 是分析事件流里的消息类型
type EventType string

const (
	EventStart       EventType = "start"
	EventStep        EventType = "step"
	EventThought     EventType = "thought"
	EventAction      EventType = "action"
	EventObservation EventType = "observation"
	EventScore       EventType = "score"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event 事件流中的一条消息，序列化为 {"type": ..., "data": ...}
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// IsTerminal complete 和 error 之后不会再有事件
func (e Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

type StartData struct {
	Message string `json:"message"`
}

type StepData struct {
	Step string `json:"step"`
}

type ThoughtData struct {
	Thought string `json:"thought"`
}

type ActionData struct {
	Action string         `json:"action"`
	Input  map[string]any `json:"input"`
}

type ObservationData struct {
	Observation string `json:"observation"`
}

type CompleteData struct {
	Analysis string `json:"analysis"`
}

type ErrorData struct {
	Error string `json:"error"`
}

func NewStartEvent(msg string) Event {
	return Event{Type: EventStart, Data: StartData{Message: msg}}
}

func NewStepEvent(step string) Event {
	return Event{Type: EventStep, Data: StepData{Step: step}}
}

func NewThoughtEvent(thought string) Event {
	return Event{Type: EventThought, Data: ThoughtData{Thought: thought}}
}

func NewActionEvent(action string, input map[string]any) Event {
	return Event{Type: EventAction, Data: ActionData{Action: action, Input: input}}
}

func NewObservationEvent(obs string) Event {
	return Event{Type: EventObservation, Data: ObservationData{Observation: obs}}
}

// NewScoreEvent score 事件直接携带 ScoreBreakdown (与前端约定一致)
func NewScoreEvent(b ScoreBreakdown) Event {
	return Event{Type: EventScore, Data: b}
}

func NewCompleteEvent(analysis string) Event {
	return Event{Type: EventComplete, Data: CompleteData{Analysis: analysis}}
}

func NewErrorEvent(msg string) Event {
	return Event{Type: EventError, Data: ErrorData{Error: msg}}
}

// EventSink 接收叙述过程中产生的事件
type EventSink func(Event)
