package core

import "time"

const (
	StatusFullyPaid     PaidStatus = "Fully Paid"
	StatusPartiallyPaid PaidStatus = "Partially Paid"
	StatusNotPaid       PaidStatus = "Not Paid"
)

type (
	PaidStatus string

	MonthAmount struct {
		Month  Month `json:"month"`
		Amount Money `json:"amount"`
	}

	// LedgerSummary is derived per student on demand and never stored.
	LedgerSummary struct {
		StudentID      string        `json:"student_id"`
		StudentName    string        `json:"student_name"`
		Class          ClassCategory `json:"class"`
		Schedule       FeeSchedule   `json:"schedule"`
		TotalDue       Money         `json:"total_due"`
		TotalReceived  Money         `json:"total_received"`
		BalanceDue     Money         `json:"balance_due"`
		PercentagePaid float64       `json:"percentage_paid"`
		// Ratio is received/due without rounding, 0 when nothing is due.
		Ratio        float64       `json:"ratio"`
		PaidMonths   []MonthAmount `json:"paid_months"`
		UnpaidMonths []Month       `json:"unpaid_months"`
	}

	ClassReportRow struct {
		StudentID     string     `json:"student_id"`
		StudentName   string     `json:"student_name"`
		GuardianName  string     `json:"guardian_name"`
		Phone         string     `json:"phone"`
		PaidMonths    int        `json:"paid_months"`
		UnpaidMonths  int        `json:"unpaid_months"`
		TotalReceived Money      `json:"total_received"`
		Outstanding   Money      `json:"outstanding"`
		Status        PaidStatus `json:"status"`
	}

	ClassReport struct {
		Class            ClassCategory    `json:"class"`
		TotalStudents    int              `json:"total_students"`
		TotalCollected   Money            `json:"total_collected"`
		TotalExpected    Money            `json:"total_expected"`
		CollectionRate   float64          `json:"collection_rate"`
		FullyPaid        int              `json:"fully_paid"`
		PartiallyPaid    int              `json:"partially_paid"`
		NotPaid          int              `json:"not_paid"`
		TotalOutstanding Money            `json:"total_outstanding"`
		Rows             []ClassReportRow `json:"rows"`
	}

	NamedAmount struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	DashboardOverview struct {
		TotalStudents  int             `json:"total_students"`
		TotalClasses   int             `json:"total_classes"`
		TotalCollected Money           `json:"total_collected"`
		TotalRecords   int             `json:"total_records"`
		CollectionRate float64         `json:"collection_rate"`
		ByClass        []NamedAmount   `json:"by_class"`
		ByMonth        []MonthAmount   `json:"by_month"`
		ByMethod       []NamedAmount   `json:"by_method"`
		Recent         []PaymentRecord `json:"recent"`
	}

	ReminderRow struct {
		StudentID    string        `json:"student_id"`
		StudentName  string        `json:"student_name"`
		GuardianName string        `json:"guardian_name"`
		Class        ClassCategory `json:"class"`
		Phone        string        `json:"phone"`
		MonthlyFee   Money         `json:"monthly_fee"`
	}

	// ReminderReport lists the students who still owe for Month. Active is
	// false before the 8th, in which case Rows is empty.
	ReminderReport struct {
		Month       Month         `json:"month"`
		Active      bool          `json:"active"`
		GeneratedAt time.Time     `json:"generated_at"`
		Rows        []ReminderRow `json:"rows"`
	}
)
