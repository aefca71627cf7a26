// Package constants provides shared constants for the vatt-indexation application.
package constants

// DateTimeLayout is the monthly period format used in output and logs.
const DateTimeLayout = "2006-01"

// SettlementLayout is the format of a settlement period given on the command
// line, e.g. 202503 for March 2025.
const SettlementLayout = "200601"

// Calendar and arithmetic constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// HundredthsDivisor converts integer-scaled quotes (e.g. "946,47" read as
	// 94647) back into units.
	HundredthsDivisor = 100.0

	// DefaultLookbackMonths is how far the reference period sits behind the
	// settlement period.
	DefaultLookbackMonths = 3

	// DefaultStartYear is the first year of the macro series export.
	DefaultStartYear = 2013

	// EarliestSupportedYear is the first year the public sources publish.
	EarliestSupportedYear = 1990
)

// Base-period constants for the indexation formula.
const (
	DefaultIPCBase       = 97.89
	DefaultDollarBase    = 629.55
	DefaultCPIBase       = 246.663
	DefaultTariffBase    = 0.06
	DefaultTariffCurrent = 0.06
	DefaultTaxBase       = 0.255
	DefaultTaxCurrent    = 0.27
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// DefaultOutputFormat is used when neither config nor flag picks one
	DefaultOutputFormat = OutputFormatPretty
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix prefixes every environment override, e.g. VATT_WORKBOOK_INPUT.
	EnvPrefix = "VATT"

	// DefaultSeriesOutput is the default path of the macro series workbook.
	DefaultSeriesOutput = "indices_macro.xlsx"

	// DefaultAdjustedOutput is the default path of the adjusted items workbook.
	DefaultAdjustedOutput = "vatt.xlsx"

	// DefaultCachePath is the default sqlite fetch cache location.
	DefaultCachePath = "vatt-cache.db"
)

// Source defaults
const (
	DefaultSIIBaseURL    = "https://www.sii.cl/valores_y_fechas"
	DefaultBLSFormURL    = "https://data.bls.gov/cgi-bin/surveymost"
	DefaultBLSSeriesID   = "CUUR0000SA0"
	DefaultUserAgent     = "vatt-indexation/1.0"
	DefaultTimeoutSecs   = 20
	DefaultRatePerSecond = 2.0
	DefaultRateBurst     = 1
)

// Fetch runner defaults
const (
	DefaultWorkers         = 1
	DefaultAttempts        = 1
	DefaultRetryDelayMs    = 500
	DefaultMaxRetryDelayMs = 8000
	MaxRecommendedWorkers  = 8
)

// Workbook defaults, matching the tariff workbook published with the
// indexation decree.
const (
	DefaultItemsSheet       = "TablaAnexo1"
	DefaultIndexationSheet  = "Indexacion"
	DefaultOwnerColumn      = "Empresa Propietaria"
	DefaultOwner            = "Agricola Ponce"
	DefaultSeriesSheet      = "Macro"
	DefaultAdjustedSheet    = "VATT"
	ColumnAVIUSD            = "AVI US$"
	ColumnCOMAUSD           = "COMA US$"
	ColumnAEIRUSD           = "AEIR US$"
	ColumnAlpha             = "alfa"
	ColumnBeta              = "beta"
	ColumnGamma             = "gama"
	ColumnDelta             = "delta"
	ColumnPeriod            = "Periodo"
	ColumnIPC               = "IPC"
	ColumnDollar            = "Dólar"
	ColumnCPI               = "CPI"
	DefaultJoinKeySystem    = "Sistema"
	DefaultJoinKeyZone      = "Zona"
	DefaultJoinKeySegment   = "Tipo Tramo (*)"
	MissingValuePlaceholder = "-"
)

// Logging defaults
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultLogMaxSizeMB  = 50
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28
)
