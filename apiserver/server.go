// Package apiserver assembles the dashboard HTTP surface.
package apiserver

import (
	"net/http"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/feature"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/johnhoman/kubeflow-centraldashboard/features"
	"github.com/johnhoman/kubeflow-centraldashboard/identity"
	"github.com/johnhoman/kubeflow-centraldashboard/kfam"
	"github.com/johnhoman/kubeflow-centraldashboard/kube"
	"github.com/johnhoman/kubeflow-centraldashboard/metrics"
	"github.com/johnhoman/kubeflow-centraldashboard/workgroup"
)

const (
	DefaultUserIDHeader = "X-Goog-Authenticated-User-Email"
	DefaultUserIDPrefix = "accounts.google.com:"

	healthzMessage = "I tick, therfore I am!"
)

type Options struct {
	UserIDHeader       string
	UserIDPrefix       string
	Production         bool
	ProfilesServiceURL string
	Features           *feature.Flags
	Logger             logging.Logger
	// Metrics and Gatherer are created together on a private registry
	// when Metrics is nil
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer
	PlatformTTL time.Duration
}

func (o Options) codeEnvironment() string {
	if o.Production {
		return "production"
	}
	return "development"
}

type debugResponse struct {
	User                    identity.User     `json:"user"`
	ProfilesServiceURL      string            `json:"profilesServiceUrl"`
	CodeEnvironment         string            `json:"codeEnvironment"`
	RegistrationFlowAllowed bool              `json:"registrationFlowAllowed"`
	HeadersForIdentity      map[string]string `json:"headersForIdentity"`
}

// NewServer returns a new *gin.Engine instance serving the dashboard API
// over the cluster and the profile controller
func NewServer(cluster kube.Interface, profiles kfam.Client, options Options) *gin.Engine {
	if options.Logger == nil {
		options.Logger = logging.NewNopLogger()
	}
	if options.Features == nil {
		options.Features = &feature.Flags{}
	}
	if options.Metrics == nil {
		reg := prometheus.NewRegistry()
		options.Metrics = metrics.NewCollector(reg)
		options.Gatherer = reg
	}
	if options.Gatherer == nil {
		options.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(options.Logger),
		options.Metrics.Middleware(),
		identity.Attach(options.UserIDHeader, options.UserIDPrefix),
	)

	router.GET("/metrics", gin.WrapH(metrics.Handler(options.Gatherer)))

	router.GET("/debug", func(c *gin.Context) {
		c.JSON(http.StatusOK, debugResponse{
			User:                    identity.FromContext(c.Request.Context()),
			ProfilesServiceURL:      options.ProfilesServiceURL,
			CodeEnvironment:         options.codeEnvironment(),
			RegistrationFlowAllowed: options.Features.Enabled(features.RegistrationFlow),
			HeadersForIdentity: map[string]string{
				"USERID_HEADER": options.UserIDHeader,
				"USERID_PREFIX": options.UserIDPrefix,
			},
		})
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"codeEnvironment": options.codeEnvironment(),
			"message":         healthzMessage,
		})
	})

	opts := []workgroup.Option{
		workgroup.WithLogger(options.Logger),
		workgroup.WithFeatures(options.Features),
	}
	if options.PlatformTTL != 0 {
		opts = append(opts, workgroup.WithPlatformTTL(options.PlatformTTL))
	}
	api := workgroup.NewAPI(profiles, cluster, opts...)

	grp := router.Group("/api")
	newDashboard(cluster, api, options.Logger).Routes(grp)
	api.Routes(grp.Group("/workgroup"))

	return router
}
