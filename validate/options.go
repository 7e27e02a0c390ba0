package validate

// Strictness selects the character policy for identity and name validation.
// The -space variants additionally permit inner spaces.
type Strictness string

const (
	// Strict allows letters, digits, underscore, and hyphen.
	Strict Strictness = "strict"
	// StrictSpace is [Strict] plus inner spaces.
	StrictSpace Strictness = "strict-space"
	// Medium allows the [Strict] set plus common punctuation.
	Medium Strictness = "medium"
	// MediumSpace is [Medium] plus inner spaces.
	MediumSpace Strictness = "medium-space"
	// Loose rejects only control characters and the separators @ and :.
	Loose Strictness = "loose"
	// LooseSpace is [Loose] plus inner spaces.
	LooseSpace Strictness = "loose-space"
)

// Options is the validation chain configuration.
type Options struct {
	IdentityStrictness Strictness
	NameStrictness     Strictness
	// IdentityBlacklist and NameBlacklist reject values containing any of
	// the listed substrings, case-insensitively.
	IdentityBlacklist []string
	NameBlacklist     []string
	// IdentityMin/Max and NameMin/Max bound the value length in bytes.
	IdentityMin, IdentityMax int
	NameMin, NameMax         int
	// PasswordMin/Max are the only password rules; no complexity classes.
	PasswordMin, PasswordMax int
	OTPDigits                int
}

// DefaultOptions mirrors the stock deployment: strict identities, friendlier
// display names, 8..32 passwords, 6-digit codes.
func DefaultOptions() Options {
	return Options{
		IdentityStrictness: Strict,
		NameStrictness:     MediumSpace,
		IdentityBlacklist:  []string{"admin", "webmaster", "root"},
		IdentityMin:        3,
		IdentityMax:        32,
		NameMin:            2,
		NameMax:            64,
		PasswordMin:        8,
		PasswordMax:        32,
		OTPDigits:          6,
	}
}

// Clone deep-copies the list-valued fields.
func (o Options) Clone() Options {
	out := o
	out.IdentityBlacklist = append([]string(nil), o.IdentityBlacklist...)
	out.NameBlacklist = append([]string(nil), o.NameBlacklist...)
	return out
}
