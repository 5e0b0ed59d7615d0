package malloc

import "encoding/json"
import "fmt"
import "sort"
import "strings"

import "github.com/fyrchik/evalloc/api"
import "github.com/fyrchik/evalloc/log"
import humanize "github.com/dustin/go-humanize"

// statser is implemented by allocators that expose Stats().
type statser interface {
	Stats() map[string]interface{}
}

// histogramer is implemented by allocators that keep histograms.
type histogramer interface {
	loghistograms() map[string]string
}

// Logstats log memory accounting and utilization of `mallocer` at
// info level. If `mallocer` also exposes Stats(), they are logged as
// json, followed by its histograms if any.
func Logstats(logprefix string, mallocer api.Mallocer, dohumanize bool) {
	capacity, heap, alloc, overhead := mallocer.Info()
	if dohumanize {
		fmsg := "%v capacity %v heap %v allocated %v overhead %v\n"
		log.Infof(fmsg, logprefix,
			humanize.Bytes(uint64(capacity)), humanize.Bytes(uint64(heap)),
			humanize.Bytes(uint64(alloc)), humanize.Bytes(uint64(overhead)))
	} else {
		fmsg := "%v capacity %v heap %v allocated %v overhead %v\n"
		log.Infof(fmsg, logprefix, capacity, heap, alloc, overhead)
	}

	if out := Utilizationstring(mallocer); out != "" {
		log.Infof("%v utilization:\n%v\n", logprefix, out)
	}

	if m, ok := mallocer.(statser); ok {
		text, err := json.Marshal(m.Stats())
		if err != nil {
			panic(fmt.Errorf("Logstats(): %v", err))
		}
		log.Infof("%v stats %v\n", logprefix, string(text))
	}

	if m, ok := mallocer.(histogramer); ok {
		hs := m.loghistograms()
		names := make([]string, 0, len(hs))
		for name := range hs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			log.Infof("%v %v %v\n", logprefix, name, hs[name])
		}
	}
}

// Utilizationstring format utilization of `mallocer`, one line per
// block size.
func Utilizationstring(mallocer api.Mallocer) string {
	outs := []string{}
	fmsg := "  %6v block-size, utilz: %6.2f%%"
	sizes, zs := mallocer.Utilization()
	for i, size := range sizes {
		outs = append(outs, fmt.Sprintf(fmsg, humanize.IBytes(uint64(size)), zs[i]))
	}
	return strings.Join(outs, "\n")
}
