package workflow

// RequestKind distinguishes full travel-expense missions from petty-cash ones.
type RequestKind string

const (
	KindFullExpense RequestKind = "VIATICOS"
	KindPettyCash   RequestKind = "CAJA_MENUDA"
)

// IsValid returns true if the kind is one of the defined constants
func (k RequestKind) IsValid() bool {
	return k == KindFullExpense || k == KindPettyCash
}

// String returns the string representation of the kind
func (k RequestKind) String() string {
	return string(k)
}

// Facts are the mission attributes a guarded rule may inspect. The threshold
// is an input so that Next stays a pure function of its arguments.
type Facts struct {
	Kind             RequestKind
	TotalCents       int64
	ThresholdCents   int64
	PaymentMethod    PaymentMethod
	AccountingReview bool
}

// RequiresCountersignature reports whether the total reaches the comptroller threshold.
func (f Facts) RequiresCountersignature() bool {
	return f.TotalCents >= f.ThresholdCents
}
