package constants

const (
	CreateDonation    = "create_donation"
	EditDonation      = "edit_donation"
	DeleteDonation    = "delete_donation"
	AcceptDonation    = "accept_donation"
	RejectDonation    = "reject_donation"
	FundDonation      = "fund_donation"
	ViewNotifications = "view_notifications"
	VerifyNGO         = "verify_ngo"
)
