// Package indexation applies the VATT indexation formula to tariff line items
// using the combined macroeconomic series.
package indexation

import (
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/vatt-indexation/internal/series"
	"github.com/iwvelando/vatt-indexation/pkg/constants"
	"github.com/iwvelando/vatt-indexation/pkg/datetime"
	"github.com/iwvelando/vatt-indexation/pkg/mathutil"
	"go.uber.org/zap"
)

// Constants are the base-period values all ratios are measured against,
// plus the current tariff and tax rates.
type Constants struct {
	IPCBase       float64 `mapstructure:"ipcBase" yaml:"ipcBase"`
	DollarBase    float64 `mapstructure:"dollarBase" yaml:"dollarBase"`
	CPIBase       float64 `mapstructure:"cpiBase" yaml:"cpiBase"`
	TariffBase    float64 `mapstructure:"tariffBase" yaml:"tariffBase"`
	TariffCurrent float64 `mapstructure:"tariffCurrent" yaml:"tariffCurrent"`
	TaxBase       float64 `mapstructure:"taxBase" yaml:"taxBase"`
	TaxCurrent    float64 `mapstructure:"taxCurrent" yaml:"taxCurrent"`
}

// DefaultConstants returns the published base-period values.
func DefaultConstants() Constants {
	return Constants{
		IPCBase:       constants.DefaultIPCBase,
		DollarBase:    constants.DefaultDollarBase,
		CPIBase:       constants.DefaultCPIBase,
		TariffBase:    constants.DefaultTariffBase,
		TariffCurrent: constants.DefaultTariffCurrent,
		TaxBase:       constants.DefaultTaxBase,
		TaxCurrent:    constants.DefaultTaxCurrent,
	}
}

// Validate rejects constants that would divide by zero.
func (c Constants) Validate() error {
	var errs []error
	if c.IPCBase <= 0 {
		errs = append(errs, fmt.Errorf("ipcBase must be positive, got %v", c.IPCBase))
	}
	if c.DollarBase <= 0 {
		errs = append(errs, fmt.Errorf("dollarBase must be positive, got %v", c.DollarBase))
	}
	if c.CPIBase <= 0 {
		errs = append(errs, fmt.Errorf("cpiBase must be positive, got %v", c.CPIBase))
	}
	if c.TariffBase <= -1 {
		errs = append(errs, fmt.Errorf("tariffBase must be greater than -1, got %v", c.TariffBase))
	}
	if c.TaxBase <= 0 || c.TaxBase >= 1 {
		errs = append(errs, fmt.Errorf("taxBase must be between 0 and 1, got %v", c.TaxBase))
	}
	if c.TaxCurrent >= 1 {
		errs = append(errs, fmt.Errorf("taxCurrent must be below 1, got %v", c.TaxCurrent))
	}
	return errors.Join(errs...)
}

// LineItem is one tariff row. Raw holds the original cells aligned with the
// table headers; the parsed fields are nil when the cell is empty or not a
// number.
type LineItem struct {
	Raw []string

	AVIUSD  *float64
	COMAUSD *float64
	AEIRUSD *float64
	Alpha   *float64
	Beta    *float64
	Gamma   *float64
	Delta   *float64
}

// Table is a set of line items sharing one header row.
type Table struct {
	Headers []string
	Items   []LineItem
}

// Ratios are the per-period factors shared by every line item.
type Ratios struct {
	IPC    *float64
	Dollar *float64
	CPI    *float64
	Tariff float64
	Tax    float64
}

// Adjustment holds the looked-up values, the ratios and the adjusted amounts
// of one line item.
type Adjustment struct {
	IPCk, IPC0 *float64
	D0, Dk     *float64
	CPIk, CPI0 *float64
	Tak, Ta0   float64
	T0, Tk     float64
	RIPC, RD   *float64
	RCPI       *float64
	RTa, Rt    float64
	AVI        *float64
	COMA       *float64
	AEIR       *float64
	VATT       *float64
}

// AdjustedItem is a line item and its adjustment, which is nil when the
// reference period was not found.
type AdjustedItem struct {
	LineItem
	Adjustment *Adjustment
}

// Result is the outcome of one indexation run.
type Result struct {
	Settlement time.Time
	Reference  time.Time
	Matched    bool
	Headers    []string
	Items      []AdjustedItem
}

// AdjustmentHeaders names the adjustment columns in output order.
var AdjustmentHeaders = []string{
	"IPC_k", "IPC_0", "D_0", "D_k", "CPI_k", "CPI_0", "Ta_k", "Ta_0", "t_0", "t_k",
	"R_IPC", "R_D", "R_CPI", "R_Ta", "R_t", "AVI", "COMA", "AEIR", "VATT",
}

// Values returns the adjustment columns in AdjustmentHeaders order.
func (a Adjustment) Values() []*float64 {
	return []*float64{
		a.IPCk, a.IPC0, a.D0, a.Dk, a.CPIk, a.CPI0,
		mathutil.Ptr(a.Tak), mathutil.Ptr(a.Ta0), mathutil.Ptr(a.T0), mathutil.Ptr(a.Tk),
		a.RIPC, a.RD, a.RCPI, mathutil.Ptr(a.RTa), mathutil.Ptr(a.Rt),
		a.AVI, a.COMA, a.AEIR, a.VATT,
	}
}

// ComputeRatios derives the period ratios from a combined series row.
// A missing indicator leaves its ratio missing.
func ComputeRatios(row series.Row, c Constants) Ratios {
	return Ratios{
		IPC:    mathutil.Div(row.IPC, mathutil.Ptr(c.IPCBase)),
		Dollar: mathutil.Div(mathutil.Ptr(c.DollarBase), row.Dollar),
		CPI:    mathutil.Div(row.CPI, mathutil.Ptr(c.CPIBase)),
		Tariff: (1 + c.TariffCurrent) / (1 + c.TariffBase),
		Tax:    (c.TaxCurrent / c.TaxBase) * ((1 - c.TaxBase) / (1 - c.TaxCurrent)),
	}
}

// Adjust applies the formula to one line item:
//
//	AVI  = AVI_US  * (alpha*R_IPC*R_D + beta*R_CPI*R_Ta)
//	COMA = COMA_US * R_IPC * R_D
//	AEIR = AEIR_US * (gamma*R_IPC*R_D + delta*R_CPI*R_Ta) * R_t
//	VATT = AVI + COMA + AEIR
func Adjust(item LineItem, row series.Row, c Constants) Adjustment {
	r := ComputeRatios(row, c)
	tariff := mathutil.Ptr(r.Tariff)

	local := mathutil.Mul(r.IPC, r.Dollar)
	foreign := mathutil.Mul(r.CPI, tariff)

	avi := mathutil.Mul(item.AVIUSD, mathutil.Add(
		mathutil.Mul(item.Alpha, local),
		mathutil.Mul(item.Beta, foreign),
	))
	coma := mathutil.Mul(item.COMAUSD, local)
	aeir := mathutil.Mul(item.AEIRUSD, mathutil.Add(
		mathutil.Mul(item.Gamma, local),
		mathutil.Mul(item.Delta, foreign),
	), mathutil.Ptr(r.Tax))

	return Adjustment{
		IPCk: row.IPC,
		IPC0: mathutil.Ptr(c.IPCBase),
		D0:   mathutil.Ptr(c.DollarBase),
		Dk:   row.Dollar,
		CPIk: row.CPI,
		CPI0: mathutil.Ptr(c.CPIBase),
		Tak:  c.TariffCurrent,
		Ta0:  c.TariffBase,
		T0:   c.TaxBase,
		Tk:   c.TaxCurrent,
		RIPC: r.IPC,
		RD:   r.Dollar,
		RCPI: r.CPI,
		RTa:  r.Tariff,
		Rt:   r.Tax,
		AVI:  avi,
		COMA: coma,
		AEIR: aeir,
		VATT: mathutil.Add(avi, coma, aeir),
	}
}

// Compute adjusts every item of table with the combined series row of the
// reference period, lookbackMonths before settlement. When that period is
// absent the items are returned unadjusted and a warning is logged.
func Compute(logger *zap.Logger, table Table, combined series.Combined, settlement time.Time, lookbackMonths int, c Constants) Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	reference := datetime.ReferencePeriod(settlement, lookbackMonths)
	result := Result{
		Settlement: datetime.MonthStart(settlement),
		Reference:  reference,
		Headers:    table.Headers,
		Items:      make([]AdjustedItem, 0, len(table.Items)),
	}

	row, ok := combined.Lookup(reference)
	if !ok {
		logger.Warn(fmt.Sprintf("no macro data found for period %s", datetime.FormatPeriod(reference)),
			zap.String("op", "indexation.Compute"),
			zap.String("settlement", settlement.Format(datetime.SettlementLayout)),
		)
		for _, item := range table.Items {
			result.Items = append(result.Items, AdjustedItem{LineItem: item})
		}
		return result
	}

	result.Matched = true
	missing := 0
	for _, item := range table.Items {
		adj := Adjust(item, row, c)
		if adj.VATT == nil {
			missing++
		}
		result.Items = append(result.Items, AdjustedItem{LineItem: item, Adjustment: &adj})
	}

	logger.Info(fmt.Sprintf("adjusted %d line items with period %s", len(result.Items), datetime.FormatPeriod(reference)),
		zap.String("op", "indexation.Compute"),
	)
	if missing > 0 {
		logger.Warn(fmt.Sprintf("%d line items have a missing VATT", missing),
			zap.String("op", "indexation.Compute"),
		)
	}
	return result
}
