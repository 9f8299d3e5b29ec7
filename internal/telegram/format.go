package telegram

import (
	"errors"
	"fmt"
	"strings"

	"rewards-backend/internal/models"
	"rewards-backend/internal/odds"
	"rewards-backend/internal/services"
)

func playText(r *models.PlayResult) string {
	switch odds.Kind(r.OutcomeKind) {
	case odds.KindCurrency:
		return fmt.Sprintf("%s: won %s. Balance %s.", r.StakeLevel, r.Credit, r.NewBalance)
	case odds.KindCollectible:
		return fmt.Sprintf("%s: won %s! Balance %s.", r.StakeLevel, r.Payload, r.NewBalance)
	default:
		return fmt.Sprintf("%s: no prize this time. Balance %s.", r.StakeLevel, r.NewBalance)
	}
}

func depositText(d *models.DepositRecord) string {
	return fmt.Sprintf("Deposit of %s credited. Balance %s.", d.Amount, d.BalanceAfter)
}

func balanceText(b *models.BalanceResponse) string {
	return fmt.Sprintf("Balance %s, %d collectibles.", b.Balance, len(b.Collectibles))
}

// oddsText lists one line per level with each outcome as a percentage.
func oddsText(set *odds.Set) string {
	lines := make([]string, 0, len(set.Levels()))
	for _, level := range set.Levels() {
		t, _ := set.Table(level)
		parts := make([]string, 0, len(t.Outcomes)+1)
		for _, o := range t.Outcomes {
			if o.Weight == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %s", outcomeLabel(o), percent(o.Weight)))
		}
		parts = append(parts, "nothing "+percent(t.LossWeight))
		lines = append(lines, fmt.Sprintf("%s (stake %s): %s", t.Level, t.Stake, strings.Join(parts, ", ")))
	}
	return strings.Join(lines, "\n")
}

func outcomeLabel(o odds.Outcome) string {
	if o.Kind == odds.KindCurrency {
		return o.Amount.String()
	}
	return o.Payload
}

func percent(permille int) string {
	return fmt.Sprintf("%d.%d%%", permille/10, permille%10)
}

func errorText(err error, set *odds.Set) string {
	switch {
	case errors.Is(err, services.ErrInvalidStakeLevel):
		return "Unknown level. Try one of: " + strings.Join(set.Levels(), ", ") + "."
	case errors.Is(err, services.ErrInsufficientFunds):
		return "Not enough balance for that level."
	case errors.Is(err, services.ErrRateLimited):
		return "Slow down a little and try again."
	case errors.Is(err, services.ErrTransient):
		return "Busy right now, please try again."
	default:
		return "Something went wrong."
	}
}
