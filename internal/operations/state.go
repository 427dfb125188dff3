package operations

import (
	"sync"
	"time"

	"crudetrack/internal/dataprocessing"
	"crudetrack/pkg/contracts/domain"
)

// OperationStatus represents the overall operation status
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// Keys of the values steps pass to each other through the operation context
const (
	ContextKeyTable      = "table"
	ContextKeyResult     = "result"
	ContextKeySnapshotID = "snapshot_id"
	ContextKeyReplayed   = "replayed"
	ContextKeyReportPath = "report_path"
)

// OperationState represents the complete state of one pipeline run
type OperationState struct {
	mu sync.RWMutex

	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`

	// Steps holds the state of every step that has started, by ID
	Steps map[string]*StepState `json:"steps"`

	// Context passes data between steps
	Context map[string]interface{} `json:"context"`

	Error error `json:"error,omitempty"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStatus returns the current status
func (p *OperationState) GetStatus() OperationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage updates the state of a specific Step
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stageID] = state
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// Table returns the fetched or replayed movements table
func (p *OperationState) Table() (*domain.Table, bool) {
	val, ok := p.GetContext(ContextKeyTable)
	if !ok {
		return nil, false
	}
	table, ok := val.(*domain.Table)
	return table, ok && table != nil
}

// Result returns the transform outcome
func (p *OperationState) Result() (*dataprocessing.Result, bool) {
	val, ok := p.GetContext(ContextKeyResult)
	if !ok {
		return nil, false
	}
	result, ok := val.(*dataprocessing.Result)
	return result, ok && result != nil
}

// Replayed reports whether the table came from a stored snapshot
func (p *OperationState) Replayed() bool {
	val, _ := p.GetContext(ContextKeyReplayed)
	replayed, _ := val.(bool)
	return replayed
}

// SnapshotID returns the ID of the snapshot saved or replayed in this run
func (p *OperationState) SnapshotID() string {
	val, _ := p.GetContext(ContextKeySnapshotID)
	id, _ := val.(string)
	return id
}
