// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command maruinfo prints the Vulkan adapters of the running machine
// as JSON, without opening a window.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/devblok/maru/gfx/vkr"
)

func main() {
	instance, err := vkr.NewInstance(vkr.DefaultApplicationInfo, nil, vkr.InstanceOptions{})
	if err != nil {
		panic(err)
	}

	if bytes, err := json.Marshal(instance.PhysicalDevicesInfo()); err == nil {
		fmt.Printf("%s", bytes)
	} else {
		panic(err)
	}

	instance.Destroy()
}
