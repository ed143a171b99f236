package commission

import (
	"sort"

	"github.com/warp/commission-engine/generic"
)

// =============================================================================
// TEAM OVERVIEW - Admin table for one month
// =============================================================================

// RepRow is one rep's line in the team overview.
type RepRow struct {
	RepID     generic.RepID `json:"rep_id"`
	FullName  string        `json:"full_name"`
	Breakdown *Breakdown    `json:"breakdown"`
}

// Overview aggregates every rep's breakdown for a month.
type Overview struct {
	Month string   `json:"month"`
	Today string   `json:"today"`
	Rows  []RepRow `json:"rows"`

	Reps           int           `json:"reps"`
	NewClients     int           `json:"new_clients"`
	NewEQClients   int           `json:"new_eq_clients"`
	NewCFDClients  int           `json:"new_cfd_clients"`
	DepositTotal   generic.Money `json:"deposit_total"`
	BonusTotal     generic.Money `json:"bonus_total"`
	PayableTotal   generic.Money `json:"payable_total"`
	ProjectedTotal generic.Money `json:"projected_total"`
	RepsOnTarget   int           `json:"reps_on_target"`
}

// BuildOverview sums breakdowns into a team table, sorted by payable total
// descending then rep ID.
func BuildOverview(ctx PeriodContext, currency generic.Currency, rows []RepRow) Overview {
	o := Overview{
		Month:          ctx.Month.String(),
		Today:          ctx.Today.String(),
		Rows:           rows,
		DepositTotal:   generic.ZeroMoney(generic.USD),
		BonusTotal:     generic.ZeroMoney(currency),
		PayableTotal:   generic.ZeroMoney(currency),
		ProjectedTotal: generic.ZeroMoney(currency),
	}
	if o.Rows == nil {
		o.Rows = []RepRow{}
	}

	for _, r := range o.Rows {
		b := r.Breakdown
		if b == nil {
			continue
		}
		o.Reps++
		o.NewClients += b.NewClients
		o.NewEQClients += b.NewEQClients
		o.NewCFDClients += b.NewCFDClients
		o.DepositTotal = o.DepositTotal.Add(b.DepositTotal)
		o.PayableTotal = o.PayableTotal.Add(b.Total)
		o.ProjectedTotal = o.ProjectedTotal.Add(b.ProjectedTotal)
		o.BonusTotal = o.BonusTotal.Add(b.Total.Sub(b.BaseSalary))
		if b.Monthly.General.Achieved {
			o.RepsOnTarget++
		}
	}

	sort.SliceStable(o.Rows, func(i, j int) bool {
		bi, bj := o.Rows[i].Breakdown, o.Rows[j].Breakdown
		if bi != nil && bj != nil && !bi.Total.Equal(bj.Total) {
			return bi.Total.GreaterThan(bj.Total)
		}
		return o.Rows[i].RepID < o.Rows[j].RepID
	})
	return o
}
