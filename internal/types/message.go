package types

import "time"

type AgentID string

const (
	AgentMempool     AgentID = "mempool"
	AgentDetector    AgentID = "detector"
	AgentSafety      AgentID = "safety"
	AgentSniper      AgentID = "sniper"
	AgentCoordinator AgentID = "coordinator"
	AgentOperator    AgentID = "operator"

	// Broadcast is the sentinel recipient for messages addressed to everyone.
	Broadcast AgentID = "*"
)

type MessageType string

const (
	MsgCandidateSeen         MessageType = "candidate_seen"
	MsgNewPoolDetected       MessageType = "new_pool_detected"
	MsgPoolDetectionReverted MessageType = "pool_detection_reverted"
	MsgGraduationDetected    MessageType = "graduation_detected"
	MsgSafetyReport          MessageType = "safety_report"
	MsgSnipeExecuted         MessageType = "snipe_executed"
	MsgSnipeFailed           MessageType = "snipe_failed"
	MsgPositionClosed        MessageType = "position_closed"
	MsgOperatorCommand       MessageType = "operator_command"
	MsgRunStateChanged       MessageType = "run_state_changed"
)

// Payload is the closed set of message bodies. Each variant reports its own
// MessageType so a publish can never pair a body with the wrong topic.
type Payload interface {
	MessageType() MessageType
}

// AgentMessage is the bus envelope. ID and Timestamp are assigned by the bus
// at publish time; the struct is immutable once published.
type AgentMessage struct {
	ID        string
	Timestamp time.Time
	From      AgentID
	To        AgentID
	Type      MessageType
	Payload   Payload
}

type CandidateSeen struct {
	Signature   string
	ProgramID   string
	Instruction string
	Slot        uint64
}

func (CandidateSeen) MessageType() MessageType { return MsgCandidateSeen }

type NewPoolDetected struct {
	Candidate PoolCandidate
}

func (NewPoolDetected) MessageType() MessageType { return MsgNewPoolDetected }

type PoolDetectionReverted struct {
	PoolAddress string
	Slot        uint64
}

func (PoolDetectionReverted) MessageType() MessageType { return MsgPoolDetectionReverted }

type GraduationDetected struct {
	PoolAddress string
	Mint        string
	RealSol     uint64
}

func (GraduationDetected) MessageType() MessageType { return MsgGraduationDetected }

type SafetyEvaluated struct {
	Report SafetyReport
}

func (SafetyEvaluated) MessageType() MessageType { return MsgSafetyReport }

type SnipeExecuted struct {
	Position  Position
	Signature string
	Simulated bool
}

func (SnipeExecuted) MessageType() MessageType { return MsgSnipeExecuted }

type SnipeFailed struct {
	PoolAddress string
	Signature   string
	Reason      string
}

func (SnipeFailed) MessageType() MessageType { return MsgSnipeFailed }

type PositionClosed struct {
	Position Position
}

func (PositionClosed) MessageType() MessageType { return MsgPositionClosed }

type CommandName string

const (
	CommandPause   CommandName = "pause"
	CommandResume  CommandName = "resume"
	CommandSell    CommandName = "sell"
	CommandSellAll CommandName = "sellall"
)

type OperatorCommand struct {
	Command     CommandName
	PoolAddress string
}

func (OperatorCommand) MessageType() MessageType { return MsgOperatorCommand }

type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusPaused  RunStatus = "PAUSED"
)

type RunStateChanged struct {
	Status RunStatus
}

func (RunStateChanged) MessageType() MessageType { return MsgRunStateChanged }
