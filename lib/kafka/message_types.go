package kafka

import (
	"github.com/shlpu/TSAT/lib/datatypes"
	"github.com/shlpu/TSAT/lib/settings"
)

// A ProgressMessage carries one progress event. The settings of the run
// only travel with the TRAIN_STARTED event.
type ProgressMessage struct {
	Settings *settings.RPMSettings `json:",omitempty"`
	Event    datatypes.ProgressEvent
}
