// Package migrationconst contains constants of the Migration contract which
// are shared between the contract itself and off-chain integrations.
package migrationconst

const (
	// DefaultConversionRate is the number of source token minimal units per
	// one target unit: the source token has 9 more fractional digits.
	DefaultConversionRate = 1_000_000_000

	// NotificationName is a name of the notification produced on every
	// successful migration.
	NotificationName = "Migration"

	// PullMethod is a method of the source token used to pull approved
	// funds into the contract account.
	PullMethod = "transferFrom"

	// MaxTargetAddressLength is the maximum length in bytes of the target
	// ledger address accepted by the contract.
	MaxTargetAddressLength = 1024
)

// Zero amount policies selected at contract deployment.
const (
	// PolicyThreshold rejects requests converting to less than one target
	// unit, zero amount included.
	PolicyThreshold = 0
	// PolicyRejectZero additionally rejects non-positive amounts with
	// ErrNonPositiveAmount before the conversion.
	PolicyRejectZero = 1
)

// Exception messages thrown by the contract.
const (
	ErrAmountBelowUnit    = "Amount must be at least 1"
	ErrNonPositiveAmount  = "amount must be greater than zero"
	ErrEmptyTargetAddress = "target address must not be empty"
	ErrLongTargetAddress  = "target address is too long"
	ErrTransferFailed     = "failed to transfer funds, aborting"
	ErrDirectTransfer     = "direct transfers are not accepted"
	ErrInvalidToken       = "incorrect token script hash length"
	ErrInvalidRate        = "conversion rate must be positive"
	ErrUnknownPolicy      = "unknown zero amount policy"
	ErrMissingTargetUnit  = "target unit must be specified"
)
