package service

import "github.com/Omvpatil/RealEstate/internal/repository"

var (
	ErrUnitNotFound          = repository.NewError(repository.KindNotFound, "unit_not_found", "unit not found")
	ErrBookingNotFound       = repository.NewError(repository.KindNotFound, "booking_not_found", "booking not found")
	ErrProjectNotFound       = repository.NewError(repository.KindNotFound, "project_not_found", "project not found")
	ErrAppointmentNotFound   = repository.NewError(repository.KindNotFound, "appointment_not_found", "appointment not found")
	ErrChangeRequestNotFound = repository.NewError(repository.KindNotFound, "change_request_not_found", "change request not found")
	ErrUserNotFound          = repository.NewError(repository.KindNotFound, "user_not_found", "user not found")
	ErrSettingNotFound       = repository.NewError(repository.KindNotFound, "setting_not_found", "setting not found")

	ErrUnitUnavailable     = repository.NewError(repository.KindInvalidInput, "unit_unavailable", "unit is not available")
	ErrInvalidAmount       = repository.NewError(repository.KindInvalidInput, "invalid_amount", "amount must be greater than zero with at most two decimal places")
	ErrOverpaymentRejected = repository.NewError(repository.KindInvalidInput, "overpayment_rejected", "payment exceeds the pending amount")
	ErrBookingTerminal     = repository.NewError(repository.KindInvalidInput, "booking_terminal", "booking is completed and can no longer change")
	ErrBookingCancelled    = repository.NewError(repository.KindInvalidInput, "booking_cancelled", "booking is cancelled")
	ErrUnitsBelowBooked    = repository.NewError(repository.KindInvalidInput, "units_below_booked", "total_units cannot be lower than booked or existing units")
	ErrProjectFull         = repository.NewError(repository.KindInvalidInput, "project_full", "project already has total_units units")
	ErrUnitNotEditable     = repository.NewError(repository.KindInvalidInput, "unit_not_editable", "only available units can be edited")
	ErrInvalidInput        = repository.NewError(repository.KindInvalidInput, "invalid_input", "invalid input")
)

// invalid wraps a validation failure so its detail reaches the client.
func invalid(err error) error {
	return &repository.Error{Kind: repository.KindInvalidInput, Code: ErrInvalidInput.Code, Msg: err.Error()}
}
