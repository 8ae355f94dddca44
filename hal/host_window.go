//go:build !tinygo && cgo

package hal

import (
	"context"
	"image"
	"time"

	"rvcore/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow boots a simulated hart and shows its framebuffer in a desktop
// window. Each frame advances mtime by the wall time since the last one,
// at cfg.Hz ticks per second. It blocks until the window closes or
// run returns an error.
func RunWindow(run func(Platform) error, cfg WindowConfig) error {
	if cfg.HeapBytes == 0 {
		cfg.HeapBytes = DefaultHeapBytes
	}
	h := newHost(SimConfig{Realtime: true}, cfg.HeapBytes)

	g := &hostGame{h: h, clock: newRealClock(cfg.Hz), hartErr: make(chan error, 1)}
	go func() {
		g.hartErr <- runHart(context.Background(), h, run, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
	}()

	ebiten.SetWindowTitle("rvcore (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	err := ebiten.RunGame(g)
	h.sim.PowerOff()
	if err == ebiten.Termination {
		return g.err
	}
	return err
}

type hostGame struct {
	h       *hostPlatform
	clock   *realClock
	hartErr chan error
	err     error

	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
}

func (g *hostGame) Update() error {
	select {
	case err := <-g.hartErr:
		g.err = err
		return ebiten.Termination
	default:
	}
	if n := g.clock.elapsed(time.Now()); n > 0 {
		g.h.sim.Tick(n)
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
