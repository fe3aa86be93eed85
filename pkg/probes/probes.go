package probes

import (
	"net/http"

	"k8s.io/klog/v2"
)

// InitHealthProbe sets up a health probe which responds with success (200 - OK)
// once its initialized. The contents of the healthz endpoint will be the string
// "Active" once the server is accepting version requests.
func InitHealthProbe(condition *bool) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		if *condition {
			w.Write([]byte("Active"))
		} else {
			w.Write([]byte("Not Active"))
		}
	})
}

func startAsync(port string) {
	err := http.ListenAndServe(":"+port, nil)
	if err != nil {
		klog.Errorf("http listen and serve error: %+v", err)
		panic(err)
	}
}

// Start starts the http server the probe responds on.
func Start(port string) {
	go startAsync(port)
}

// InitAndStart initializes the default probes and starts the http listening port.
func InitAndStart(port string, condition *bool) {
	InitHealthProbe(condition)
	klog.Infof("initialized health probe on port %s", port)

	Start(port)
	klog.Info("started health probe")
}
