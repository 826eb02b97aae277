package config

// Default values.
const (
	DefaultResultsDir     = ".qodana/results"
	DefaultQueueCapacity  = 1000
	DefaultWorkers        = 0
	DefaultLogLevel       = "info"
	DefaultLogJSON        = false
	DefaultSampleRatio    = 1.0
	DefaultIncludeAbsent  = false
	DefaultCompressReport = false
	DefaultQuota          = 0
)

// configNames are the file names searched in the project directory.
var configNames = []string{"qodana.yaml", "qodana.yml"}

// envPrefix is the environment variable prefix, e.g. QODANA_LOGGING_LEVEL.
const envPrefix = "QODANA"

// Keys of optional values. They have no defaults so that an unset key stays nil.
const (
	KeyFailThreshold   = "failThreshold"
	KeySeverityAny     = "failureConditions.severityThresholds.any"
	keySeverityPrefix  = "failureConditions.severityThresholds."
	KeyCoverageTotal   = "failureConditions.testCoverageThresholds.total"
	KeyCoverageFresh   = "failureConditions.testCoverageThresholds.fresh"
	KeyResultsDir      = "resultsDir"
	KeyBaselinePath    = "baseline.path"
	KeyIncludeAbsent   = "baseline.includeAbsent"
	KeyQueueCapacity   = "writer.queueCapacity"
	KeyWorkers         = "writer.workers"
	KeyDefaultQuota    = "quota.default"
	KeyLogLevel        = "logging.level"
	KeyLogJSON         = "logging.json"
	KeyOTLPEndpoint    = "observability.otlpEndpoint"
	KeyOTLPHeaders     = "observability.otlpHeaders"
	KeyOTLPInsecure    = "observability.otlpInsecure"
	KeySampleRatio     = "observability.sampleRatio"
	KeyMetricsTextfile = "observability.metricsTextfile"
	KeyCoverageFile    = "coverage.file"
	KeyChangesFile     = "scope.changesFile"
	KeyDiffStart       = "scope.diffStart"
	KeyCompressReport  = "report.compress"
)
