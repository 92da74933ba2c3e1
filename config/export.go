package config

import (
	"time"

	"github.com/spf13/viper"
)

// Export export pipeline config struct
type Export struct {
	MaxConcurrency       int           `json:"max_concurrency" yaml:"max_concurrency"`
	ArtifactTTL          time.Duration `json:"artifact_ttl" yaml:"artifact_ttl"`
	StatusTTL            time.Duration `json:"status_ttl" yaml:"status_ttl"`
	LockTTL              time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
	RetrievalTimeout     time.Duration `json:"retrieval_timeout" yaml:"retrieval_timeout"`
	ConversionTimeout    time.Duration `json:"conversion_timeout" yaml:"conversion_timeout"`
	UploadTimeout        time.Duration `json:"upload_timeout" yaml:"upload_timeout"`
	CompressionThreshold int           `json:"compression_threshold" yaml:"compression_threshold"`
	FileServiceURL       string        `json:"file_service_url" yaml:"file_service_url"`
	PdfServiceURL        string        `json:"pdf_service_url" yaml:"pdf_service_url"`
}

func getExportConfig(v *viper.Viper) *Export {
	return &Export{
		MaxConcurrency:       v.GetInt("export.max_concurrency"),
		ArtifactTTL:          v.GetDuration("export.artifact_ttl"),
		StatusTTL:            v.GetDuration("export.status_ttl"),
		LockTTL:              v.GetDuration("export.lock_ttl"),
		RetrievalTimeout:     v.GetDuration("export.retrieval_timeout"),
		ConversionTimeout:    v.GetDuration("export.conversion_timeout"),
		UploadTimeout:        v.GetDuration("export.upload_timeout"),
		CompressionThreshold: v.GetInt("export.compression_threshold"),
		FileServiceURL:       v.GetString("export.file_service_url"),
		PdfServiceURL:        v.GetString("export.pdf_service_url"),
	}
}

func setExportDefaults(v *viper.Viper) {
	v.SetDefault("export.max_concurrency", 8)
	v.SetDefault("export.artifact_ttl", time.Hour)
	v.SetDefault("export.status_ttl", 24*time.Hour)
	v.SetDefault("export.lock_ttl", 10*time.Minute)
	v.SetDefault("export.retrieval_timeout", 30*time.Second)
	v.SetDefault("export.conversion_timeout", 2*time.Minute)
	v.SetDefault("export.upload_timeout", time.Minute)
	v.SetDefault("export.compression_threshold", 1024)
}
