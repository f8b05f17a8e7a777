package models

import "time"

// Role names carried in JWT claims.
const (
	RoleAdmin     = "admin"
	RoleScheduler = "scheduler"
	RoleViewer    = "viewer"
)

// MachineStatus enumerates operational machine states.
type MachineStatus string

const (
	MachineAvailable   MachineStatus = "AVAILABLE"
	MachineBusy        MachineStatus = "BUSY"
	MachineOffline     MachineStatus = "OFFLINE"
	MachineMaintenance MachineStatus = "MAINTENANCE"
)

// WorkOrderStatus tracks a work order through its lifecycle.
type WorkOrderStatus string

const (
	WorkOrderDraft      WorkOrderStatus = "DRAFT"
	WorkOrderReleased   WorkOrderStatus = "RELEASED"
	WorkOrderInProgress WorkOrderStatus = "IN_PROGRESS"
	WorkOrderCompleted  WorkOrderStatus = "COMPLETED"
	WorkOrderCancelled  WorkOrderStatus = "CANCELLED"
)

// WorkOrderPriority orders work orders by urgency.
type WorkOrderPriority string

const (
	PriorityCritical WorkOrderPriority = "CRITICAL"
	PriorityUrgent   WorkOrderPriority = "URGENT"
	PriorityHigh     WorkOrderPriority = "HIGH"
	PriorityNormal   WorkOrderPriority = "NORMAL"
	PriorityLow      WorkOrderPriority = "LOW"
)

// Rank maps priority to a sortable integer, lower is more urgent.
func (p WorkOrderPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 3
	case PriorityLow:
		return 4
	default:
		return 5
	}
}

// OperationStatus tracks a manufacturing step.
type OperationStatus string

const (
	OperationPending OperationStatus = "PENDING"
	OperationReady   OperationStatus = "READY"
	OperationRunning OperationStatus = "RUNNING"
	OperationDone    OperationStatus = "DONE"
)

// Facility is a physical plant location.
type Facility struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	OrganizationID string `gorm:"type:uuid;index;not null"`
	Name           string `gorm:"type:varchar(255);not null"`
	Timezone       string `gorm:"type:varchar(64);not null;default:'UTC'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WorkCenter groups interchangeable machines with a shared daily capacity.
type WorkCenter struct {
	ID                 string  `gorm:"type:uuid;primaryKey"`
	OrganizationID     string  `gorm:"type:uuid;index;not null"`
	FacilityID         string  `gorm:"type:uuid;index;not null"`
	Name               string  `gorm:"type:varchar(255);not null"`
	DailyCapacityHours float64 `gorm:"default:0"` // 0 means unset, callers fall back to the configured default
	Active             bool    `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Machine is a schedulable resource belonging to a work center.
type Machine struct {
	ID             string        `gorm:"type:uuid;primaryKey"`
	OrganizationID string        `gorm:"type:uuid;index;not null"`
	FacilityID     string        `gorm:"type:uuid;index;not null"`
	WorkCenterID   string        `gorm:"type:uuid;index;not null"`
	Name           string        `gorm:"type:varchar(255);not null"`
	Status         MachineStatus `gorm:"type:varchar(16);not null;default:'AVAILABLE'"`
	Active         bool          `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WorkOrder is a manufacturing job producing a quantity of a part.
// Its lifecycle is owned by production control; the scheduler reads it.
type WorkOrder struct {
	ID             string            `gorm:"type:uuid;primaryKey"`
	OrganizationID string            `gorm:"type:uuid;index;not null"`
	FacilityID     string            `gorm:"type:uuid;index"`
	Number         string            `gorm:"type:varchar(50);index;not null"`
	PartNumber     string            `gorm:"type:varchar(64)"`
	Quantity       int               `gorm:"not null;default:1"`
	Priority       WorkOrderPriority `gorm:"type:varchar(16);not null;default:'NORMAL'"`
	Status         WorkOrderStatus   `gorm:"type:varchar(16);index;not null;default:'DRAFT'"`
	DueDate        time.Time         `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Operation is one manufacturing step of a work order, executed at a
// work center. Scheduled* fields mirror the slot that places it.
type Operation struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	OrganizationID string          `gorm:"type:uuid;index;not null"`
	WorkOrderID    string          `gorm:"type:uuid;index;not null"`
	WorkCenterID   string          `gorm:"type:uuid;index;not null"`
	SequenceNumber int             `gorm:"not null;default:10"`
	Name           string          `gorm:"type:varchar(255)"`
	Status         OperationStatus `gorm:"type:varchar(16);index;not null;default:'PENDING'"`

	SetupStandardMinutes    int `gorm:"not null;default:0"`
	RunStandardMinutes      int `gorm:"not null;default:0"`
	TeardownStandardMinutes int `gorm:"not null;default:0"`
	QuantityRequired        int `gorm:"not null;default:1"`

	// Mirror of the slot that scheduled this operation.
	ScheduledStart     *time.Time
	ScheduledEnd       *time.Time
	ScheduledMachineID *string `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EstimatedDurationMinutes applies the standard timing formula.
func (o Operation) EstimatedDurationMinutes() int {
	qty := o.QuantityRequired
	if qty < 1 {
		qty = 1
	}
	return o.SetupStandardMinutes + o.RunStandardMinutes*qty + o.TeardownStandardMinutes
}
