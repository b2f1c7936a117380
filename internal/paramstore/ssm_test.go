package paramstore_test

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/greeting-bff/internal/paramstore"
)

type fakeSSM struct {
	values   map[string]string
	err      error
	delay    time.Duration
	names    []string
	decrypts []bool
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.names = append(f.names, aws.ToString(in.Name))
	f.decrypts = append(f.decrypts, aws.ToBool(in.WithDecryption))

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	v, ok := f.values[aws.ToString(in.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{Message: aws.String("not found")}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

var _ = Describe("Key", func() {
	It("should join namespace and leaf", func() {
		Expect(paramstore.Key("astro-webui", "api.timeout.ms")).To(Equal("/astro-webui/api.timeout.ms"))
	})

	It("should not double slashes", func() {
		Expect(paramstore.Key("/astro-webui/", "/log.level")).To(Equal("/astro-webui/log.level"))
	})
})

var _ = Describe("New", func() {
	It("should return the disabled client without an endpoint", func() {
		client, err := paramstore.New(context.Background(), paramstore.Options{Region: "eu-west-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client).To(Equal(paramstore.Disabled{}))
	})

	It("should build an SSM client with an endpoint override", func() {
		client, err := paramstore.New(context.Background(), paramstore.Options{
			Endpoint:        "http://localhost:4566",
			Region:          "eu-west-1",
			AccessKeyID:     "test",
			SecretAccessKey: "test",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(client).To(BeAssignableToTypeOf(&paramstore.SSMClient{}))
	})
})

var _ = Describe("Disabled", func() {
	It("should always fail fast", func() {
		_, err := paramstore.Disabled{}.Get(context.Background(), "/astro-webui/log.level")
		Expect(err).To(MatchError(paramstore.ErrDisabled))
	})
})

var _ = Describe("SSMClient", func() {
	var (
		api    *fakeSSM
		client *paramstore.SSMClient
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = &fakeSSM{values: map[string]string{"/astro-webui/api.retry.count": "2"}}
		client = paramstore.NewSSMClient(api, 0)
	})

	It("should return the stored value", func() {
		v, err := client.Get(ctx, "/astro-webui/api.retry.count")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("2"))
		Expect(api.names).To(Equal([]string{"/astro-webui/api.retry.count"}))
	})

	It("should request decryption", func() {
		_, _ = client.Get(ctx, "/astro-webui/api.retry.count")
		Expect(api.decrypts).To(Equal([]bool{true}))
	})

	It("should map a missing parameter to ErrNotFound", func() {
		_, err := client.Get(ctx, "/astro-webui/missing")
		Expect(errors.Is(err, paramstore.ErrNotFound)).To(BeTrue())
	})

	It("should treat an empty value as not found", func() {
		api.values["/astro-webui/empty"] = ""
		_, err := client.Get(ctx, "/astro-webui/empty")
		Expect(errors.Is(err, paramstore.ErrNotFound)).To(BeTrue())
	})

	It("should map API errors to ErrUnavailable and keep the cause", func() {
		cause := errors.New("connection refused")
		api.err = cause
		_, err := client.Get(ctx, "/astro-webui/api.retry.count")
		Expect(errors.Is(err, paramstore.ErrUnavailable)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
	})

	It("should bound each call with its timeout", func() {
		api.delay = time.Second
		client = paramstore.NewSSMClient(api, 20*time.Millisecond)

		start := time.Now()
		_, err := client.Get(ctx, "/astro-webui/api.retry.count")
		Expect(errors.Is(err, paramstore.ErrUnavailable)).To(BeTrue())
		Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
	})
})

var _ = Describe("Static", func() {
	It("should serve stored values", func() {
		v, err := paramstore.Static{"/svc/a": "1"}.Get(context.Background(), "/svc/a")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("1"))
	})

	It("should report missing and empty keys as not found", func() {
		s := paramstore.Static{"/svc/empty": ""}
		_, err := s.Get(context.Background(), "/svc/empty")
		Expect(err).To(MatchError(paramstore.ErrNotFound))
		_, err = s.Get(context.Background(), "/svc/none")
		Expect(err).To(MatchError(paramstore.ErrNotFound))
	})
})
