package platform

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv reads an env var with a fallback default.
func GetEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func GetEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		if strings.ToLower(val) == "true" || val == "1" {
			return true
		}
		return false
	}
	return defaultVal
}

// Paths holds the durable-storage locations for model artifacts and reports.
type Paths struct {
	ModelsDir     string
	BundleFile    string
	ReportsDir    string
	BenchmarkFile string
}

// DefaultPaths returns the artifact layout, overridable through env vars.
func DefaultPaths() Paths {
	modelsDir := GetEnv("MODELS_DIR", "models")
	reportsDir := GetEnv("REPORTS_DIR", "outputs/reports")
	return Paths{
		ModelsDir:     modelsDir,
		BundleFile:    modelsDir + "/production_pipeline_bundle.gob",
		ReportsDir:    reportsDir,
		BenchmarkFile: reportsDir + "/algorithm_benchmark.json",
	}
}
