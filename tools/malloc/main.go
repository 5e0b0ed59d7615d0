package main

import "fmt"
import "flag"
import "math/rand"
import "os"
import "time"

import "github.com/fyrchik/evalloc/api"
import "github.com/fyrchik/evalloc/lib"
import "github.com/fyrchik/evalloc/log"
import "github.com/fyrchik/evalloc/malloc"
import humanize "github.com/dustin/go-humanize"

var options struct {
	allocator string
	provider  string
	capacity  int64
	chunk     int64
	group     int64
	ops       int
	seed      int64
	loglevel  string
	logfile   string
	verbose   bool
	safety    bool
}

func argParse() {
	flag.StringVar(&options.allocator, "allocator", "flist",
		"allocator to exercise, flist or pool")
	flag.StringVar(&options.provider, "provider", "heap",
		"backing memory, heap or mmap or libc")
	flag.Int64Var(&options.capacity, "capacity", 16*1024,
		"buffer size for flist")
	flag.Int64Var(&options.chunk, "chunk", 96,
		"chunk size for pool")
	flag.Int64Var(&options.group, "group", 1024,
		"number of chunks in pool's group")
	flag.IntVar(&options.ops, "ops", 100000,
		"number of alloc/free operations")
	flag.Int64Var(&options.seed, "seed", 0,
		"seed for random workload, 0 picks current time")
	flag.StringVar(&options.loglevel, "log", "info",
		"log level")
	flag.StringVar(&options.logfile, "logfile", "",
		"log to file instead of console")
	flag.BoolVar(&options.verbose, "verbose", false,
		"log every alloc and free")
	flag.BoolVar(&options.safety, "safety", true,
		"validate pointers on free")
	flag.Parse()

	if options.seed == 0 {
		options.seed = time.Now().UnixNano()
	}
}

func main() {
	argParse()
	log.SetLogger(nil, map[string]interface{}{
		"log.level": options.loglevel,
		"log.file":  options.logfile,
	})
	malloc.LogComponents("all")

	provider, err := malloc.NewProvider(options.provider)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	var mallocer api.Mallocer
	var sizes []int64
	var cleanup func()

	setts := lib.Settings{"safety": options.safety, "verbose": options.verbose}
	switch options.allocator {
	case "flist":
		region, err := provider.Region(options.capacity)
		if err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		f := malloc.NewFreelist("cmdline", setts)
		if err := f.Init(region); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		mallocer, sizes = f, flistsizes(options.capacity)
		cleanup = func() { provider.Unmap(region) }

	case "pool":
		poolsetts := malloc.Poolsettings(options.chunk, options.group)
		pool := malloc.NewPool("cmdline", poolsetts.Mixin(setts), provider)
		mallocer, sizes = pool, []int64{options.chunk}
		cleanup = func() {}

	default:
		fmt.Printf("unknown allocator %q\n", options.allocator)
		os.Exit(1)
	}

	now := time.Now()
	live, nooms := workload(mallocer, sizes)
	fmt.Printf("Took %v for %v operations, seed %v, %v out of memory\n",
		time.Since(now), options.ops, options.seed, nooms)
	printutilization(mallocer, live)

	for _, ptr := range live {
		mallocer.Free(ptr)
	}
	if mallocer.Release() {
		fmt.Printf("leak detected on release\n")
	}
	cleanup()
}

// workload randomly allocates and frees, returns regions that are
// still live.
func workload(mallocer api.Mallocer, sizes []int64) ([][]byte, int) {
	rnd := rand.New(rand.NewSource(options.seed))
	live, nooms := make([][]byte, 0), 0
	for i := 0; i < options.ops; i++ {
		if len(live) > 0 && rnd.Intn(3) == 0 {
			n := rnd.Intn(len(live))
			mallocer.Free(live[n])
			live[n] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		ptr, err := mallocer.Alloc(sizes[rnd.Intn(len(sizes))])
		if err != nil {
			nooms++
			continue
		}
		live = append(live, ptr)
	}
	return live, nooms
}

// flistsizes return even request sizes up to 1/16th of capacity.
func flistsizes(capacity int64) []int64 {
	sizes := []int64{0}
	for size := int64(2); size <= capacity/16; size *= 2 {
		sizes = append(sizes, size, size+2)
	}
	return sizes
}

func printutilization(mallocer api.Mallocer, live [][]byte) {
	capacity, heap, alloc, overhead := mallocer.Info()
	fmt.Printf("live regions: %v\n", len(live))
	fmt.Printf("capacity: %v\n", humanize.Bytes(uint64(capacity)))
	fmt.Printf("heap    : %v\n", humanize.Bytes(uint64(heap)))
	fmt.Printf("alloc   : %v\n", humanize.Bytes(uint64(alloc)))
	fmt.Printf("overhead: %v\n", humanize.Bytes(uint64(overhead)))
	if s := malloc.Utilizationstring(mallocer); s != "" {
		fmt.Println(s)
	}
	malloc.Logstats("cmdline", mallocer, true)
}
