package midi

import (
	"fmt"
	"strconv"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Ports lists the names of the available output ports. A driver must be registered with
// a blank import (see cmd/cueline).
func Ports() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

// Open connects to an output port chosen by number or by a case-insensitive name
// substring. The returned close func releases the port.
func Open(port string) (SendFunc, func() error, error) {
	outs := gomidi.GetOutPorts()
	if len(outs) == 0 {
		return nil, nil, fmt.Errorf("no midi output ports")
	}

	idx := -1
	if n, err := strconv.Atoi(port); err == nil && n >= 0 && n < len(outs) {
		idx = n
	} else {
		for i, p := range outs {
			if strings.Contains(strings.ToLower(p.String()), strings.ToLower(port)) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil, nil, fmt.Errorf("midi output port %q not found", port)
	}

	out := outs[idx]
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open midi port %q: %w", out.String(), err)
	}
	return send, out.Close, nil
}
