package credits

import "errors"

var (
	// ErrReportNotFound rejects issuance for an unknown report id.
	ErrReportNotFound = errors.New("emission report not found")
	// ErrReportNotApproved rejects issuance for a report outside the
	// admin-approved stage.
	ErrReportNotApproved = errors.New("emission report is not admin-approved")
	// ErrAlreadyIssued permanently rejects a second issuance for a report.
	ErrAlreadyIssued = errors.New("credits already issued for this report")
	// ErrInvalidQuantity rejects a report whose verified quantity converts to
	// zero whole credit units.
	ErrInvalidQuantity = errors.New("report quantity yields no whole credit unit")
)
