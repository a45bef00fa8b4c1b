package midi

import (
	"strings"

	midilib "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// virtualOutOpener is implemented by drivers that can expose a named
// software MIDI port for other applications to connect to, used when no
// hardware or loopback device matches the preference list.
type virtualOutOpener interface {
	OpenVirtualOut(name string) (drivers.Out, error)
}

const virtualPortName = "Web MIDI Controller"

// Open enumerates available MIDI outputs and opens the first one matching
// cfg.Preferred, in preference order. If nothing matches, it falls back to
// a virtual port, then to the first enumerated device, then to null mode:
// a Sink with no device attached, which discards every event and logs once
// rather than failing the caller. This mirrors how the servo controller
// this package is descended from falls back to a no-op bus when the
// expected hardware device file is absent.
func Open(cfg Config) *Sink {
	s := &Sink{logger: cfg.Logger}

	drv, err := rtmididrv.New()
	if err != nil {
		s.logger.Warn().Err(err).Msg("midi driver unavailable; running in null mode")
		return s
	}

	outs, err := drv.Outs()
	if err != nil {
		s.logger.Warn().Err(err).Msg("midi: could not enumerate outputs; running in null mode")
		return s
	}

	chosen := selectPreferred(outs, cfg.Preferred)

	if chosen == nil {
		if opener, ok := drv.(virtualOutOpener); ok {
			if v, err := opener.OpenVirtualOut(virtualPortName); err == nil {
				chosen = v
			}
		}
	}

	if chosen == nil && len(outs) > 0 {
		chosen = outs[0]
	}

	if chosen == nil {
		s.logger.Warn().Msg("midi: no output device found; running in null mode")
		return s
	}

	if err := chosen.Open(); err != nil {
		s.logger.Warn().Err(err).Str("device", chosen.String()).Msg("midi: failed to open device; running in null mode")
		return s
	}

	send, err := midilib.SendTo(chosen)
	if err != nil {
		s.logger.Warn().Err(err).Msg("midi: failed to bind sender; running in null mode")
		chosen.Close()
		return s
	}

	s.out = chosen
	s.send = send
	s.available = true
	s.logger.Info().Str("device", chosen.String()).Msg("midi device opened")
	return s
}

func selectPreferred(outs []drivers.Out, preferred []string) drivers.Out {
	for _, pref := range preferred {
		needle := strings.ToLower(pref)
		for _, o := range outs {
			if strings.Contains(strings.ToLower(o.String()), needle) {
				return o
			}
		}
	}
	return nil
}
