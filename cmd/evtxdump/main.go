// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/saferwall/evtx"
	"github.com/saferwall/evtx/internal/cpuid"
	"github.com/spf13/cobra"
)

var (
	jsonOut    bool
	indent     bool
	numWorkers int

	wg   sync.WaitGroup
	jobs chan string = make(chan string)
)

// loopFilesWorker drains jobs, dumping every .evtx file handed to it. Work
// is split one worker per file rather than per directory, since an
// individual .evtx file is itself chunk-parallel (dumpFile fans out across
// its own chunks).
func loopFilesWorker() {
	for path := range jobs {
		dumpFile(path)
		wg.Done()
	}
}

// dumpFile opens one .evtx file and renders every record, one goroutine
// per chunk, since chunks decode as independent parallel work units.
func dumpFile(path string) {
	settings := evtx.ParserSettings{Indent: indent}
	f, err := evtx.New(path, settings)
	if err != nil {
		log.Printf("failed to open %s: %v", path, err)
		return
	}
	defer f.Close()

	n := f.ChunkCount()
	results := make([][]string, n)
	var chunkWg sync.WaitGroup
	sem := make(chan struct{}, workerLimit())

	for i := 0; i < n; i++ {
		chunkWg.Add(1)
		go func(idx int) {
			defer chunkWg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ch, err := f.Chunk(idx)
			if err != nil {
				log.Printf("%s: chunk %d: %v", path, idx, err)
				return
			}
			var out []string
			next := ch.Records()
			for {
				rec, ok, err := next()
				if err != nil {
					log.Printf("%s: chunk %d: %v", path, idx, err)
					break
				}
				if !ok {
					break
				}
				var text string
				var rerr error
				if jsonOut {
					text, rerr = rec.RenderJSON(evtx.JSONOptions{Indent: settings.Indent, SeparateAttributes: settings.SeparateJSONAttributes})
				} else {
					text, rerr = rec.RenderXML(evtx.XMLOptions{Indent: settings.Indent})
				}
				if rerr != nil {
					log.Printf("%s: record %d: %v", path, rec.ID, rerr)
				}
				out = append(out, text)
			}
			results[idx] = out
		}(i)
	}
	chunkWg.Wait()

	for _, chunkRecords := range results {
		for _, r := range chunkRecords {
			fmt.Println(r)
		}
	}
}

func workerLimit() int {
	if numWorkers > 0 {
		return numWorkers
	}
	return runtime.NumCPU()
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func dump(cmd *cobra.Command, args []string) {
	target := args[0]

	if !isDirectory(target) {
		dumpFile(target)
		return
	}

	var fileList []string
	filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && filepath.Ext(path) == ".evtx" {
			fileList = append(fileList, path)
		}
		return nil
	})

	for i := 0; i < workerLimit(); i++ {
		go loopFilesWorker()
	}
	for _, f := range fileList {
		wg.Add(1)
		jobs <- f
	}
	wg.Wait()
	close(jobs)
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "evtxdump",
		Short: "A Windows Event Log (.evtx) reader",
		Long:  "Decodes .evtx files into XML or JSON, built by Saferwall",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 0.0.1")
			fmt.Printf("escape path: %s (host SIMD-capable: %v)\n", cpuid.EscapePath(), cpuid.HostSupportsSIMD())
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dumps a .evtx file or every .evtx file under a directory",
		Args:  cobra.MinimumNArgs(1),
		Run:   dump,
	}
	dumpCmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "render records as JSON instead of XML")
	dumpCmd.Flags().BoolVarP(&indent, "indent", "i", false, "pretty-print output")
	dumpCmd.Flags().IntVarP(&numWorkers, "workers", "w", 0, "max concurrent chunk workers per file (default: number of logical CPUs)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
