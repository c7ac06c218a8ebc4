package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/crossplane/crossplane-runtime/pkg/feature"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/johnhoman/kubeflow-centraldashboard/apis/v1alpha1"
	"github.com/johnhoman/kubeflow-centraldashboard/apiserver"
	"github.com/johnhoman/kubeflow-centraldashboard/features"
	"github.com/johnhoman/kubeflow-centraldashboard/kfam"
	"github.com/johnhoman/kubeflow-centraldashboard/kfam/kfamserver"
	"github.com/johnhoman/kubeflow-centraldashboard/kube"
	"github.com/johnhoman/kubeflow-centraldashboard/kube/kubemock"
	"github.com/johnhoman/kubeflow-centraldashboard/metrics"
)

var CLI struct {
	Port               int           `env:"PORT_1" default:"8082" help:"port the dashboard listens on"`
	KfamHost           string        `name:"kfam-host" env:"PROFILES_KFAM_SERVICE_HOST" help:"profile controller host, defaults to localhost in development and profiles-kfam.kubeflow in production"`
	KfamPort           int           `name:"kfam-port" env:"PROFILES_KFAM_SERVICE_PORT" default:"8081"`
	UserIDHeader       string        `name:"userid-header" env:"USERID_HEADER" default:"X-Goog-Authenticated-User-Email"`
	UserIDPrefix       string        `name:"userid-prefix" env:"USERID_PREFIX" default:"accounts.google.com:"`
	NodeEnv            string        `name:"node-env" env:"NODE_ENV" help:"production enables production mode"`
	RegistrationFlow   string        `env:"REGISTRATION_FLOW" default:"true" help:"allow users to create their own namespace"`
	DashboardConfigMap string        `name:"dashboard-configmap" env:"DASHBOARD_CONFIGMAP" default:"centraldashboard-config"`
	Namespace          string        `env:"POD_NAMESPACE" default:"kubeflow" help:"namespace holding the dashboard config map and the Kubeflow application"`
	PlatformInfoTTL    time.Duration `name:"platform-info-ttl" default:"5m" help:"how long platform info is cached, 0 caches forever"`
	Debug              bool          `help:"enable debug logging"`

	MockKfam       bool     `name:"mock-kfam" help:"serve an in-memory profile controller on the kfam port"`
	MockKubernetes bool     `name:"mock-kubernetes" help:"use an in-memory cluster"`
	ClusterAdmin   []string `help:"cluster admins of the in-memory profile controller"`
}

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(v1alpha1.AddToScheme(scheme))
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("centraldashboard"),
		kong.Description("Kubeflow central dashboard API server"),
		kong.DefaultEnvars(""),
	)

	zapLogger := zap.New(zap.UseDevMode(CLI.Debug), func(o *zap.Options) {
		o.TimeEncoder = zapcore.RFC3339TimeEncoder
	})
	logger := logging.NewLogrLogger(zapLogger.WithName("centraldashboard"))

	production := CLI.NodeEnv == "production"
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	flags := &feature.Flags{}
	if strings.EqualFold(CLI.RegistrationFlow, "true") {
		flags.Enable(features.RegistrationFlow)
	}

	kfamHost := CLI.KfamHost
	if kfamHost == "" {
		kfamHost = "localhost"
		if production {
			kfamHost = "profiles-kfam.kubeflow"
		}
	}
	profilesServiceURL := fmt.Sprintf("http://%s:%d/kfam", kfamHost, CLI.KfamPort)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	kubeOpts := []kube.Option{
		kube.WithNamespace(CLI.Namespace),
		kube.WithDashboardConfigMap(CLI.DashboardConfigMap),
		kube.WithLogger(logger.WithValues("component", "kube")),
	}
	var cluster *kube.Service
	if CLI.MockKubernetes {
		logger.Info("using an in-memory cluster")
		cluster = kubemock.NewService(CLI.Namespace, kubeOpts...)
	} else {
		cfg, err := config.GetConfig()
		ctx.FatalIfErrorf(err, "failed to load kubernetes config")
		clientset, err := kubernetes.NewForConfig(cfg)
		ctx.FatalIfErrorf(err, "failed to create kubernetes client")
		dyn, err := dynamic.NewForConfig(cfg)
		ctx.FatalIfErrorf(err, "failed to create dynamic client")
		cluster = kube.NewService(clientset, dyn, kubeOpts...)
	}

	if CLI.MockKfam {
		logger.Info("serving an in-memory profile controller", "port", CLI.KfamPort, "admins", CLI.ClusterAdmin)
		mock := kfamserver.NewServer(fake.NewClientBuilder().WithScheme(scheme).Build(), kfamserver.Options{
			BaseURL:      "/kfam",
			UserIDHeader: CLI.UserIDHeader,
			UserIDPrefix: CLI.UserIDPrefix,
			Admins:       CLI.ClusterAdmin,
			Logger:       logger.WithValues("component", "kfam"),
		})
		go func() {
			ctx.FatalIfErrorf(mock.Run(fmt.Sprintf(":%d", CLI.KfamPort)), "in-memory profile controller stopped")
		}()
	}

	profiles := kfam.NewClient(profilesServiceURL, kfam.WithRecorder(collector))

	server := apiserver.NewServer(cluster, profiles, apiserver.Options{
		UserIDHeader:       CLI.UserIDHeader,
		UserIDPrefix:       CLI.UserIDPrefix,
		Production:         production,
		ProfilesServiceURL: profilesServiceURL,
		Features:           flags,
		Logger:             logger,
		Metrics:            collector,
		Gatherer:           reg,
		PlatformTTL:        platformTTL(CLI.PlatformInfoTTL),
	})

	var handler http.Handler = server
	if !production {
		handler = apiserver.WithDevCORS(handler)
	}

	mode := "development"
	if production {
		mode = "production"
	}
	logger.Info("Server listening", "address", fmt.Sprintf("http://localhost:%d", CLI.Port), "mode", mode, "profiles", profilesServiceURL)
	ctx.FatalIfErrorf(http.ListenAndServe(fmt.Sprintf(":%d", CLI.Port), handler))
}

// platformTTL maps the zero flag value to the never-expire setting of
// the workgroup cache
func platformTTL(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}
