package pages

// Text and selectors the target site renders. Changing any of these breaks
// the lookups that depend on them.
const (
	WelcomeHeading       = "Welcome to Shady Meadows B&B"
	ConfirmedHeading     = "Booking Confirmed"
	ConfirmedText        = "Your booking has been confirmed for the following dates:"
	QueryReceivedHeading = "Thanks for getting in touch"
	InvalidCredentials   = "Invalid credentials"
	ClientErrorBanner    = "Application error: a client-side exception has occurred while loading automationintesting.online (see the browser console for more information)."

	NextMonthButton = "Next Month"
	CheckinLabel    = "Check In"
	CheckoutLabel   = "Check Out"

	ConfirmationCard = ".card-body"
	NavBar           = "#navbarNav"

	LoginPath   = "/api/auth/login"
	BookingPath = "/api/booking"

	DefaultRoomName = "Double Room"
	// DefaultRoomLink is the first room card's booking link. The markup has no
	// stable id for it.
	DefaultRoomLink = "#rooms > div > div.row.g-4 > div:nth-child(1) > div > div.card-footer.bg-white.d-flex.justify-content-between.align-items-center > a"
)
