// hydra-info prints a Hydra device's info block and register file.
package main

import (
	"flag"
	"fmt"

	"github.com/c35s/hydra/hydra"
	"github.com/c35s/hydra/uapi"
)

func main() {
	dev := flag.String("dev", uapi.DevicePath, "open the device at `addr`")
	flag.Parse()

	c, err := hydra.Dial(*dev, hydra.Config{})
	if err != nil {
		panic(err)
	}

	defer c.Close()

	info, err := c.Info()
	if err != nil {
		panic(err)
	}

	fmt.Printf("vendor=%#04x device=%#04x irq=%d irq_count=%d\n", info.Vendor, info.Device, info.IRQ, info.IRQCount)
	fmt.Printf("BAR0 start=%#x len=%#x\n", info.BAR0Start, info.BAR0Len)
	fmt.Printf("BAR1 start=%#x len=%#x\n", info.BAR1Start, info.BAR1Len)

	fmt.Println("\n# registers")
	for _, off := range uapi.Regs() {
		v, err := c.Read32(off)
		if err != nil {
			panic(err)
		}

		fmt.Printf("[%#06x] %-14s %-7v %#010x\n", off, uapi.RegName(off), uapi.KindOf(off), v)
	}
}
