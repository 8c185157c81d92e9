//go:build opencl
// +build opencl

package workbench

/*
#cgo CFLAGS: -I${SRCDIR}/../../deps/opencl-headers
#cgo windows LDFLAGS: -L${SRCDIR}/../../deps/lib -lOpenCL
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
*/
import "C"

import (
	"embed"
	_ "embed"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/seaasses/address-artisan/pkg/cacherange"
	"github.com/seaasses/address-artisan/pkg/deriver"
	"github.com/seaasses/address-artisan/pkg/gpucache"
	"github.com/seaasses/address-artisan/pkg/pathenum"
	"github.com/seaasses/address-artisan/pkg/prefix"
)

//go:embed kernels/batch_address_search.cl
var kernelSource embed.FS

const (
	gpuWorkSize     = 524_288
	gpuCacheCap     = 1_000_000
	gpuMaxMatches   = 1_000
	gpuReportPeriod = time.Second
)

// GPUWorkbench runs the search loop entirely on one OpenCL device: the
// kernel derives each candidate key from a small preloaded cache of
// intermediate (b, a) nodes and reports match coordinates back to the
// host for authoritative re-validation.
type GPUWorkbench struct {
	config        Config
	events        EventSender
	stop          chan struct{}
	deviceIndex   int
	platformIndex int

	globalGenerated atomic.Uint64
	done            chan struct{}
}

// NewGPUWorkbench creates a workbench bound to the given platform/device
// index pair, in the order OpenCL enumerates platforms and their devices.
func NewGPUWorkbench(config Config, events EventSender, stop chan struct{}, platformIndex, deviceIndex int) *GPUWorkbench {
	return &GPUWorkbench{
		config:        config,
		events:        events,
		stop:          stop,
		deviceIndex:   deviceIndex,
		platformIndex: platformIndex,
		done:          make(chan struct{}),
	}
}

// Start implements Workbench.
func (b *GPUWorkbench) Start() {
	go b.run()
}

// Wait implements Workbench.
func (b *GPUWorkbench) Wait() {
	<-b.done
}

// TotalGenerated implements Workbench.
func (b *GPUWorkbench) TotalGenerated() uint64 {
	return b.globalGenerated.Load()
}

func (b *GPUWorkbench) run() {
	defer close(b.done)
	start := time.Now()
	b.events.Started(start)
	defer func() { b.events.Stopped(b.globalGenerated.Load(), time.Since(start)) }()

	ctx, err := newOpenCLContext(b.platformIndex, b.deviceIndex)
	if err != nil {
		return
	}
	defer ctx.release()

	src, err := kernelSource.ReadFile("kernels/batch_address_search.cl")
	if err != nil {
		return
	}
	if err := ctx.buildProgram(string(src)); err != nil {
		return
	}

	d, err := deriver.New(b.config.Xpub)
	if err != nil {
		return
	}
	cache := gpucache.New(gpuCacheCap)

	lows, highs := flattenRanges(b.config.Prefixes)

	pipeline, err := ctx.newPipeline(lows, highs, b.config.MaxDepth)
	if err != nil {
		return
	}
	defer pipeline.release()

	counter := uint64(0)
	lastReport := time.Now()
	generatedSinceReport := uint64(0)

	for {
		select {
		case <-b.stop:
			return
		default:
		}

		keys, err := cacherange.Analyze(counter, gpuWorkSize, b.config.MaxDepth)
		if err != nil {
			return
		}
		changed, err := cache.Replace(d, keys, b.config.Seed0, b.config.Seed1)
		if err != nil {
			return
		}
		if changed {
			if err := pipeline.uploadCache(cache); err != nil {
				return
			}
		}

		matches, cacheMiss, err := pipeline.runBatch(counter)
		if err != nil {
			return
		}
		if cacheMiss {
			return
		}

		for _, m := range matches {
			path := pathenum.Path{b.config.Seed0, b.config.Seed1, m.B, m.A, 0, m.Index}
			prefixID := matchingPrefixID(b.config.Prefixes, m.Hash160)
			if prefixID < 0 {
				// The kernel flattens every prefix's ranges into one buffer
				// and reports a range hit without the originating prefix;
				// this can only happen if two prefixes' ranges overlap in a
				// way that makes the hash160 fail every prefix's own check,
				// which the range compiler guarantees cannot occur.
				continue
			}
			b.events.PotentialMatch(path, prefixID)
		}

		generatedSinceReport += gpuWorkSize
		b.globalGenerated.Add(gpuWorkSize)

		if time.Since(lastReport) >= gpuReportPeriod {
			b.events.Progress(generatedSinceReport)
			generatedSinceReport = 0
			lastReport = time.Now()
		}

		counter += gpuWorkSize
	}
}

// flattenRanges concatenates every prefix's hash160 ranges into two flat
// 20-byte-per-entry buffers, one for the low bound and one for the high
// bound. The kernel only reports a hit against this combined buffer, not
// which prefix it came from; matchingPrefixID recovers that host-side from
// the reported hash160.
func flattenRanges(prefixes []*prefix.Prefix) (lows, highs []byte) {
	for _, p := range prefixes {
		for _, r := range p.Ranges {
			lows = append(lows, r.Low[:]...)
			highs = append(highs, r.High[:]...)
		}
	}
	return lows, highs
}

// gpuMatch is one candidate reported by the kernel.
type gpuMatch struct {
	B, A, Index uint32
	Hash160     [20]byte
}

// matchingPrefixID returns the index of the first prefix whose range check
// accepts hash160, or -1 if none does. The kernel itself only reports a
// hit against the flattened range buffer, not which prefix it came from.
func matchingPrefixID(prefixes []*prefix.Prefix, hash160 [20]byte) int {
	for i, p := range prefixes {
		if p.Matches(hash160) {
			return i
		}
	}
	return -1
}

// openCLContext wraps the device/context/queue/program lifecycle, built
// once and reused across every batch.
type openCLContext struct {
	platform C.cl_platform_id
	device   C.cl_device_id
	context  C.cl_context
	queue    C.cl_command_queue
	program  C.cl_program
}

func newOpenCLContext(platformIndex, deviceIndex int) (*openCLContext, error) {
	var numPlatforms C.cl_uint
	if C.clGetPlatformIDs(0, nil, &numPlatforms) != C.CL_SUCCESS || int(numPlatforms) == 0 {
		return nil, fmt.Errorf("workbench: no OpenCL platforms")
	}
	platforms := make([]C.cl_platform_id, numPlatforms)
	C.clGetPlatformIDs(numPlatforms, &platforms[0], nil)
	if platformIndex >= len(platforms) {
		return nil, fmt.Errorf("workbench: platform index %d out of range", platformIndex)
	}
	platform := platforms[platformIndex]

	var numDevices C.cl_uint
	if C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, 0, nil, &numDevices) != C.CL_SUCCESS || int(numDevices) == 0 {
		return nil, fmt.Errorf("workbench: no OpenCL devices")
	}
	devices := make([]C.cl_device_id, numDevices)
	C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, numDevices, &devices[0], nil)
	if deviceIndex >= len(devices) {
		return nil, fmt.Errorf("workbench: device index %d out of range", deviceIndex)
	}
	device := devices[deviceIndex]

	var ret C.cl_int
	context := C.clCreateContext(nil, 1, &device, nil, nil, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("workbench: context creation failed: %d", ret)
	}
	queue := C.clCreateCommandQueue(context, device, 0, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("workbench: queue creation failed: %d", ret)
	}

	return &openCLContext{platform: platform, device: device, context: context, queue: queue}, nil
}

func (c *openCLContext) buildProgram(src string) error {
	cSrc := C.CString(src)
	defer C.free(unsafe.Pointer(cSrc))
	length := C.size_t(len(src))

	var ret C.cl_int
	c.program = C.clCreateProgramWithSource(c.context, 1, &cSrc, &length, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("workbench: program creation failed: %d", ret)
	}

	ret = C.clBuildProgram(c.program, 1, &c.device, nil, nil, nil)
	if ret != C.CL_SUCCESS {
		var logSize C.size_t
		C.clGetProgramBuildInfo(c.program, c.device, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize)
		buildLog := make([]byte, logSize)
		C.clGetProgramBuildInfo(c.program, c.device, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buildLog[0]), nil)
		return fmt.Errorf("workbench: program build failed: %s", string(buildLog))
	}
	return nil
}

func (c *openCLContext) release() {
	if c.program != nil {
		C.clReleaseProgram(c.program)
	}
	if c.queue != nil {
		C.clReleaseCommandQueue(c.queue)
	}
	if c.context != nil {
		C.clReleaseContext(c.context)
	}
}

// pipeline owns the kernel and every buffer it reads or writes, all
// allocated once so that each batch only updates the few args that
// actually change: the cache buffers, the cache size, and the start
// counter.
type pipeline struct {
	ctx    *openCLContext
	kernel C.cl_kernel

	rangeLows, rangeHighs     C.cl_mem
	cacheKeys, cacheValues    C.cl_mem
	matchesHash160            C.cl_mem
	matchesB, matchesA        C.cl_mem
	matchesIndex, matchCount  C.cl_mem
	cacheMissCounter          C.cl_mem
	rangeCount                uint32
	maxDepth                  uint32
}

func (c *openCLContext) newPipeline(lows, highs []byte, maxDepth uint32) (*pipeline, error) {
	p := &pipeline{ctx: c, rangeCount: uint32(len(lows) / 20), maxDepth: maxDepth}

	var err error
	if p.rangeLows, err = c.newBufferFromBytes(lows); err != nil {
		return nil, err
	}
	if p.rangeHighs, err = c.newBufferFromBytes(highs); err != nil {
		return nil, err
	}
	if p.cacheKeys, err = c.newBuffer(gpuCacheCap * 8); err != nil {
		return nil, err
	}
	if p.cacheValues, err = c.newBuffer(gpuCacheCap * 96); err != nil {
		return nil, err
	}
	if p.matchesHash160, err = c.newBuffer(gpuMaxMatches * 20); err != nil {
		return nil, err
	}
	if p.matchesB, err = c.newBuffer(gpuMaxMatches * 4); err != nil {
		return nil, err
	}
	if p.matchesA, err = c.newBuffer(gpuMaxMatches * 4); err != nil {
		return nil, err
	}
	if p.matchesIndex, err = c.newBuffer(gpuMaxMatches * 4); err != nil {
		return nil, err
	}
	if p.matchCount, err = c.newBuffer(4); err != nil {
		return nil, err
	}
	if p.cacheMissCounter, err = c.newBuffer(4); err != nil {
		return nil, err
	}

	var ret C.cl_int
	name := C.CString("batch_address_search")
	defer C.free(unsafe.Pointer(name))
	p.kernel = C.clCreateKernel(c.program, name, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("workbench: kernel creation failed: %d", ret)
	}

	p.setArg(0, p.cacheKeys)
	p.setArg(1, p.cacheValues)
	p.setArg(2, p.rangeLows)
	p.setArg(3, p.rangeHighs)
	p.setArgU32(4, p.rangeCount)
	p.setArgU32(5, 0)
	p.setArgU64(6, 0)
	p.setArgU32(7, p.maxDepth)
	p.setArg(8, p.matchesHash160)
	p.setArg(9, p.matchesB)
	p.setArg(10, p.matchesA)
	p.setArg(11, p.matchesIndex)
	p.setArg(12, p.matchCount)
	p.setArg(13, p.cacheMissCounter)

	return p, nil
}

func (c *openCLContext) newBuffer(size int) (C.cl_mem, error) {
	var ret C.cl_int
	buf := C.clCreateBuffer(c.context, C.CL_MEM_READ_WRITE, C.size_t(size), nil, &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("workbench: buffer creation failed: %d", ret)
	}
	return buf, nil
}

func (c *openCLContext) newBufferFromBytes(data []byte) (C.cl_mem, error) {
	if len(data) == 0 {
		return c.newBuffer(1)
	}
	var ret C.cl_int
	buf := C.clCreateBuffer(c.context, C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR,
		C.size_t(len(data)), unsafe.Pointer(&data[0]), &ret)
	if ret != C.CL_SUCCESS {
		return nil, fmt.Errorf("workbench: buffer creation failed: %d", ret)
	}
	return buf, nil
}

func (p *pipeline) setArg(index C.cl_uint, mem C.cl_mem) {
	C.clSetKernelArg(p.kernel, index, C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem))
}

func (p *pipeline) setArgU32(index C.cl_uint, v uint32) {
	cv := C.cl_uint(v)
	C.clSetKernelArg(p.kernel, index, C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv))
}

func (p *pipeline) setArgU64(index C.cl_uint, v uint64) {
	cv := C.cl_ulong(v)
	C.clSetKernelArg(p.kernel, index, C.size_t(unsafe.Sizeof(cv)), unsafe.Pointer(&cv))
}

// uploadCache writes the cache's staged entries to the device-resident
// keys/values buffers and updates the kernel's cache_size argument.
func (p *pipeline) uploadCache(cache *gpucache.Cache) error {
	entries := cache.Entries()

	keys := make([]byte, len(entries)*8)
	values := make([]byte, len(entries)*96)
	for i, e := range entries {
		putU32(keys[i*8:], e.Key.B)
		putU32(keys[i*8+4:], e.Key.A)
		copy(values[i*96:], e.ChainCode[:])
		copy(values[i*96+32:], e.X[:])
		copy(values[i*96+64:], e.Y[:])
	}

	if len(keys) > 0 {
		ret := C.clEnqueueWriteBuffer(p.ctx.queue, p.cacheKeys, C.CL_TRUE, 0, C.size_t(len(keys)),
			unsafe.Pointer(&keys[0]), 0, nil, nil)
		if ret != C.CL_SUCCESS {
			return fmt.Errorf("workbench: writing cache keys: %d", ret)
		}
		ret = C.clEnqueueWriteBuffer(p.ctx.queue, p.cacheValues, C.CL_TRUE, 0, C.size_t(len(values)),
			unsafe.Pointer(&values[0]), 0, nil, nil)
		if ret != C.CL_SUCCESS {
			return fmt.Errorf("workbench: writing cache values: %d", ret)
		}
	}

	p.setArgU32(5, uint32(len(entries)))
	return nil
}

// runBatch resets the per-batch counters, sets the start counter, and
// executes the kernel over one gpuWorkSize window, returning reported
// matches and whether the device reported a cache miss.
func (p *pipeline) runBatch(startCounter uint64) ([]gpuMatch, bool, error) {
	zero := C.cl_uint(0)
	if ret := C.clEnqueueWriteBuffer(p.ctx.queue, p.matchCount, C.CL_TRUE, 0, C.size_t(unsafe.Sizeof(zero)),
		unsafe.Pointer(&zero), 0, nil, nil); ret != C.CL_SUCCESS {
		return nil, false, fmt.Errorf("workbench: resetting match count: %d", ret)
	}
	if ret := C.clEnqueueWriteBuffer(p.ctx.queue, p.cacheMissCounter, C.CL_TRUE, 0, C.size_t(unsafe.Sizeof(zero)),
		unsafe.Pointer(&zero), 0, nil, nil); ret != C.CL_SUCCESS {
		return nil, false, fmt.Errorf("workbench: resetting cache miss counter: %d", ret)
	}
	if ret := C.clFinish(p.ctx.queue); ret != C.CL_SUCCESS {
		return nil, false, fmt.Errorf("workbench: syncing resets: %d", ret)
	}

	p.setArgU64(6, startCounter)

	globalSize := C.size_t(gpuWorkSize)
	if ret := C.clEnqueueNDRangeKernel(p.ctx.queue, p.kernel, 1, nil, &globalSize, nil, 0, nil, nil); ret != C.CL_SUCCESS {
		return nil, false, fmt.Errorf("workbench: kernel execution failed: %d", ret)
	}
	if ret := C.clFinish(p.ctx.queue); ret != C.CL_SUCCESS {
		return nil, false, fmt.Errorf("workbench: syncing kernel: %d", ret)
	}

	var cacheMiss C.cl_uint
	if ret := C.clEnqueueReadBuffer(p.ctx.queue, p.cacheMissCounter, C.CL_TRUE, 0, C.size_t(unsafe.Sizeof(cacheMiss)),
		unsafe.Pointer(&cacheMiss), 0, nil, nil); ret != C.CL_SUCCESS {
		return nil, false, fmt.Errorf("workbench: reading cache miss counter: %d", ret)
	}
	if cacheMiss != 0 {
		return nil, true, nil
	}

	var count C.cl_uint
	if ret := C.clEnqueueReadBuffer(p.ctx.queue, p.matchCount, C.CL_TRUE, 0, C.size_t(unsafe.Sizeof(count)),
		unsafe.Pointer(&count), 0, nil, nil); ret != C.CL_SUCCESS {
		return nil, false, fmt.Errorf("workbench: reading match count: %d", ret)
	}

	n := int(count)
	if n > gpuMaxMatches {
		n = gpuMaxMatches
	}
	if n == 0 {
		return nil, false, nil
	}

	bData := make([]byte, n*4)
	aData := make([]byte, n*4)
	idxData := make([]byte, n*4)
	hashData := make([]byte, n*20)

	C.clEnqueueReadBuffer(p.ctx.queue, p.matchesB, C.CL_TRUE, 0, C.size_t(len(bData)), unsafe.Pointer(&bData[0]), 0, nil, nil)
	C.clEnqueueReadBuffer(p.ctx.queue, p.matchesA, C.CL_TRUE, 0, C.size_t(len(aData)), unsafe.Pointer(&aData[0]), 0, nil, nil)
	C.clEnqueueReadBuffer(p.ctx.queue, p.matchesIndex, C.CL_TRUE, 0, C.size_t(len(idxData)), unsafe.Pointer(&idxData[0]), 0, nil, nil)
	C.clEnqueueReadBuffer(p.ctx.queue, p.matchesHash160, C.CL_TRUE, 0, C.size_t(len(hashData)), unsafe.Pointer(&hashData[0]), 0, nil, nil)

	matches := make([]gpuMatch, n)
	for i := 0; i < n; i++ {
		m := gpuMatch{
			B:     getU32(bData[i*4:]),
			A:     getU32(aData[i*4:]),
			Index: getU32(idxData[i*4:]),
		}
		copy(m.Hash160[:], hashData[i*20:(i+1)*20])
		matches[i] = m
	}
	return matches, false, nil
}

func (p *pipeline) release() {
	for _, mem := range []C.cl_mem{
		p.rangeLows, p.rangeHighs, p.cacheKeys, p.cacheValues,
		p.matchesHash160, p.matchesB, p.matchesA, p.matchesIndex,
		p.matchCount, p.cacheMissCounter,
	} {
		if mem != nil {
			C.clReleaseMemObject(mem)
		}
	}
	if p.kernel != nil {
		C.clReleaseKernel(p.kernel)
	}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
