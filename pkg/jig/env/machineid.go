package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "jig.go"

// MachineID retrieves an ID identifying the test station.
// The raw machine ID is hashed with an application key so it isn't
// exposed in published topics. Hostname is used when the machine has
// no ID (e.g. in containers).
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil {
		return id[:12]
	}
	glog.V(2).Infof("no machine id: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
