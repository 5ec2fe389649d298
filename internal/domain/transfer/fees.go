package transfer

// FeeSchedule maps each transfer type to its fixed fee in minor units.
// The values are business configuration, not permanent logic; the schedule is
// injected into the initiation service from config.
type FeeSchedule map[Type]int64

// DefaultFeeSchedule returns the observed production defaults: internal and
// ACH transfers are free, domestic and cross-border transfers carry fixed fees.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		TypeInternal:      0,
		TypeDomestic:      50,
		TypeACH:           0,
		TypeWire:          2500,
		TypeInternational: 3500,
	}
}

// Fee returns the fee for the given transfer type, zero for unknown types
func (f FeeSchedule) Fee(t Type) int64 {
	return f[t]
}
