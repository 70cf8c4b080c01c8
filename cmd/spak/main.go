// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command spak packs compiled SPIR-V shaders into a spak archive.
// Shader files follow the name.stage.spv convention, the stage part
// selecting the pipeline stage the binary targets.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devblok/maru/utility/spak"
)

var (
	version    = flag.Int64("version", 1, "Archive version number to create it with")
	pack       = flag.String("c", "", "Pack compiled shaders from the given directory")
	list       = flag.String("l", "", "List the index of the given archive")
	dstFile    = flag.String("f", "out.spak", "Destination file")
	entryPoint = flag.String("entry", "main", "Shader entry point name")
)

const shaderSuffix = ".spv"

func main() {
	var opMade bool
	flag.Parse()

	if *pack != "" && *list != "" {
		panic(errors.New("only one operation at a time"))
	}

	if *list != "" {
		opMade = true
		if err := listArchive(); err != nil {
			panic(err)
		}
	}

	if *pack != "" {
		opMade = true
		if err := packShaders(); err != nil {
			panic(err)
		}
	}

	if !opMade {
		flag.PrintDefaults()
	}
}

// stageFromName reads the stage out of a name.stage.spv file name.
func stageFromName(name string) (spak.Stage, bool) {
	shader := strings.TrimSuffix(name, shaderSuffix)
	nodes := strings.Split(shader, ".")
	if len(nodes) != 2 {
		return 0, false
	}

	switch nodes[len(nodes)-1] {
	case "vert":
		return spak.StageVertex, true
	case "frag":
		return spak.StageFragment, true
	case "comp":
		return spak.StageCompute, true
	default:
		return 0, false
	}
}

func packShaders() error {
	if _, err := os.Stat(*dstFile); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	builder := spak.NewBuilder(spak.Header{
		Tool:        "spak",
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})

	var packed int
	if err := filepath.Walk(*pack, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), shaderSuffix) {
			return nil
		}

		stage, ok := stageFromName(info.Name())
		if !ok {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := builder.Add(strings.TrimSuffix(info.Name(), shaderSuffix), stage, *entryPoint, data); err != nil {
			return err
		}
		packed++
		return nil
	}); err != nil {
		return err
	}

	if packed == 0 {
		return errors.New("no compiled shaders found")
	}

	dst, err := os.Create(*dstFile)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := builder.WriteTo(dst); err != nil {
		return err
	}
	return nil
}

func listArchive() error {
	f, err := os.Open(*list)
	if err != nil {
		return err
	}
	defer f.Close()

	archive, err := spak.Open(f)
	if err != nil {
		return err
	}

	bytes, err := json.MarshalIndent(archive.Index(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", bytes)
	return nil
}
