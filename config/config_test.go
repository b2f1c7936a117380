package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/greeting-bff/config"
)

var envVars = []string{
	"HOST", "PORT", "SERVER_ENVIRONMENT", "NODE_ENV", "SERVICE_NAME",
	"PARAMETER_STORE_ENDPOINT", "SSM_ENDPOINT", "AWS_REGION",
	"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "LOGGING_LEVEL",
	"PARAMETER_STORE_TIMEOUT",
}

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
}

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()

		saved := map[string]string{}
		for _, name := range envVars {
			if value, ok := os.LookupEnv(name); ok {
				saved[name] = value
			}
			Expect(os.Unsetenv(name)).To(Succeed())
		}
		DeferCleanup(func() {
			for _, name := range envVars {
				_ = os.Unsetenv(name)
			}
			for name, value := range saved {
				_ = os.Setenv(name, value)
			}
		})
	})

	writeConfig := func(content string) {
		Expect(os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0o644)).To(Succeed())
	}

	Describe("Load", func() {
		Context("without a config file", func() {
			It("should use the defaults", func() {
				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Addr()).To(Equal("0.0.0.0:4321"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvDev))
				Expect(cfg.Service.Name).To(Equal("astro-webui"))
				Expect(cfg.ParameterStore.Endpoint).To(BeEmpty())
				Expect(cfg.ParameterStore.Region).To(Equal("eu-west-1"))
				Expect(cfg.ParameterStore.Timeout).To(Equal(2 * time.Second))
				Expect(cfg.ParameterStore.BreakerThreshold).To(Equal(5))
				Expect(cfg.ParameterStore.BreakerReset).To(Equal(30 * time.Second))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelInfo))
				Expect(cfg.Telemetry.OTLPEndpoint).To(BeEmpty())
				Expect(cfg.Telemetry.ServiceName).To(Equal("astro-webui"))
				Expect(cfg.Telemetry.Insecure).To(BeTrue())
				Expect(cfg.Refresh.Interval).To(Equal(30 * time.Second))
				Expect(cfg.HealthCheck.Interval).To(Equal(30 * time.Second))
				Expect(cfg.HealthCheck.Path).To(Equal("/actuator/health"))
			})
		})

		Context("with a valid config file", func() {
			BeforeEach(func() {
				writeConfig(`
server:
  host: "127.0.0.1"
  port: 8081
  environment: "staging"

service:
  name: "greetings-ui"

parameter_store:
  endpoint: "http://localhost:4566"
  timeout: "500ms"
  breaker_threshold: 3
  breaker_reset: "10s"

logging:
  level: "debug"

health_check:
  interval: "5s"
  path: "/health"
`)
			})

			It("should load the values", func() {
				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Addr()).To(Equal("127.0.0.1:8081"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvStaging))
				Expect(cfg.Service.Name).To(Equal("greetings-ui"))
				Expect(cfg.ParameterStore.Endpoint).To(Equal("http://localhost:4566"))
				Expect(cfg.ParameterStore.Timeout).To(Equal(500 * time.Millisecond))
				Expect(cfg.ParameterStore.BreakerThreshold).To(Equal(3))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
				Expect(cfg.HealthCheck.Path).To(Equal("/health"))
			})

			It("should let the environment override the file", func() {
				setenv("PORT", "9090")
				setenv("SERVICE_NAME", "other-ui")

				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Port).To(Equal(9090))
				Expect(cfg.Service.Name).To(Equal("other-ui"))
			})
		})

		Context("with deployment environment variables", func() {
			It("should bind the AWS and OTEL names", func() {
				setenv("SSM_ENDPOINT", "http://localstack:4566")
				setenv("AWS_REGION", "us-east-1")
				setenv("AWS_ACCESS_KEY_ID", "test")
				setenv("AWS_SECRET_ACCESS_KEY", "secret")
				setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
				setenv("OTEL_SERVICE_NAME", "webui")

				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.ParameterStore.Endpoint).To(Equal("http://localstack:4566"))
				Expect(cfg.ParameterStore.Region).To(Equal("us-east-1"))
				Expect(cfg.ParameterStore.AccessKeyID).To(Equal("test"))
				Expect(cfg.ParameterStore.SecretAccessKey).To(Equal("secret"))
				Expect(cfg.Telemetry.OTLPEndpoint).To(Equal("http://collector:4317"))
				Expect(config.OTLPHostPort(cfg.Telemetry.OTLPEndpoint)).To(Equal("collector:4317"))
				Expect(cfg.Telemetry.ServiceName).To(Equal("webui"))
			})

			It("should prefer PARAMETER_STORE_ENDPOINT over SSM_ENDPOINT", func() {
				setenv("PARAMETER_STORE_ENDPOINT", "http://primary:4566")
				setenv("SSM_ENDPOINT", "http://secondary:4566")

				cfg, err := config.LoadFrom(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.ParameterStore.Endpoint).To(Equal("http://primary:4566"))
			})

			DescribeTable("NODE_ENV mapping",
				func(nodeEnv, expected string) {
					setenv("NODE_ENV", nodeEnv)

					cfg, err := config.LoadFrom(tempDir)
					Expect(err).NotTo(HaveOccurred())
					Expect(cfg.Server.Environment).To(Equal(expected))
				},
				Entry("production", "production", config.EnvProd),
				Entry("development", "development", config.EnvDev),
				Entry("test", "test", config.EnvDev),
				Entry("staging", "staging", config.EnvStaging),
			)
		})

		Context("with invalid values", func() {
			DescribeTable("should fail validation",
				func(content string) {
					writeConfig(content)
					_, err := config.LoadFrom(tempDir)
					Expect(err).To(HaveOccurred())
				},
				Entry("unknown environment", "server:\n  environment: qa\n"),
				Entry("port out of range", "server:\n  port: 70000\n"),
				Entry("unknown log level", "logging:\n  level: trace\n"),
				Entry("relative health path", "health_check:\n  path: health\n"),
				Entry("zero store timeout", "parameter_store:\n  timeout: 0s\n"),
				Entry("key id without secret", "parameter_store:\n  access_key_id: abc\n"),
				Entry("malformed endpoint", "parameter_store:\n  endpoint: 'not a url'\n"),
				Entry("otlp endpoint without port", "telemetry:\n  otlp_endpoint: collector\n"),
				Entry("too frequent refresh", "refresh:\n  interval: 10ms\n"),
			)

			It("should fail on malformed YAML", func() {
				writeConfig("server: [\n")
				_, err := config.LoadFrom(tempDir)
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
