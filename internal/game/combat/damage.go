package combat

// DamageResult is the breakdown of one damage calculation.
//
// Invariant: Net == max(0, PreReduction - Reduction).
type DamageResult struct {
	Raw          int
	Critical     bool
	PreReduction int // Raw, doubled on a critical
	Reduction    int
	Net          int
}

// CalculateDamage doubles raw on a critical, subtracts the target's total
// damage reduction, and floors the result at zero.
//
// Postcondition: Net >= 0.
func CalculateDamage(raw int, critical bool, reduction int) DamageResult {
	pre := raw
	if critical {
		pre *= 2
	}
	net := pre - reduction
	if net < 0 {
		net = 0
	}
	return DamageResult{
		Raw:          raw,
		Critical:     critical,
		PreReduction: pre,
		Reduction:    reduction,
		Net:          net,
	}
}

// ApplyDamage returns currentHP reduced by net, floored at zero.
//
// Precondition: net >= 0.
// Postcondition: Returns a value in [0, currentHP].
func ApplyDamage(currentHP, net int) int {
	hp := currentHP - net
	if hp < 0 {
		hp = 0
	}
	return hp
}

// HealResult is the breakdown of one heal application.
//
// Invariant: After == clamp(Before + Amount, 0, Max); Applied == After - Before.
type HealResult struct {
	Amount  int
	Before  int
	After   int
	Max     int
	Applied int
}

// CalculateHeal adds amount to currentHP clamped to [0, maxHP]. Damage
// reduction never applies to healing.
//
// Postcondition: 0 <= After <= maxHP.
func CalculateHeal(currentHP, maxHP, amount int) HealResult {
	after := currentHP + amount
	if after > maxHP {
		after = maxHP
	}
	if after < 0 {
		after = 0
	}
	return HealResult{
		Amount:  amount,
		Before:  currentHP,
		After:   after,
		Max:     maxHP,
		Applied: after - currentHP,
	}
}
