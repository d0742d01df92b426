// Command chunkgen генерирует синтетические полезные нагрузки чанков на шуме Перлина,
// печатает их размеры по ширине упаковки клеток и при необходимости сохраняет
// в хранилище badger для тёплого старта клиента.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/annel0/tileworld/internal/codec"
	"github.com/annel0/tileworld/internal/definitions"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/worldgen"
)

type widthStats struct {
	chunks   int
	bytes    int
	entities int
}

func main() {
	var (
		seed      = flag.Int64("seed", time.Now().UnixNano(), "сид генератора")
		fromX     = flag.Int("from-x", -4, "первая колонка чанков")
		toX       = flag.Int("to-x", 4, "последняя колонка чанков")
		fromY     = flag.Int("from-y", -3, "нижний ряд чанков")
		toY       = flag.Int("to-y", 1, "верхний ряд чанков")
		animals   = flag.Int("animals", 2, "животных на чанк")
		mode      = flag.String("id-mode", "legacy", "режим ID сущностей: legacy | packed")
		defsPath  = flag.String("definitions", "", "таблица пользовательских определений (yaml/toml)")
		storePath = flag.String("store", "", "каталог badger для сохранения чанков; пусто - не сохранять")
		dimension = flag.String("dimension", "overworld", "измерение в ключах хранилища")
		verbose   = flag.Bool("v", false, "печатать каждый чанк")
	)
	flag.Parse()

	if *fromX > *toX || *fromY > *toY {
		log.Fatalf("❌ пустой диапазон чанков")
	}

	defs := definitions.Default()
	if *defsPath != "" {
		var err error
		if defs, err = definitions.Load(*defsPath); err != nil {
			log.Fatalf("❌ %v", err)
		}
	}
	idMode, err := codec.ParseIDMode(*mode)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	gen, err := worldgen.New(defs, *seed)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	gen.AnimalsPerChunk = *animals
	enc := codec.NewEncoder(defs.Air(), idMode)
	dec := codec.NewDecoder(defs, idMode)

	payloads := make(map[string][]byte)
	stats := make(map[int]*widthStats)
	total := 0

	for cy := *fromY; cy <= *toY; cy++ {
		for cx := *fromX; cx <= *toX; cx++ {
			c := gen.Chunk(int32(cx), int32(cy))
			payload, err := enc.Encode(c)
			if err != nil {
				log.Fatalf("❌ чанк (%d,%d): %v", cx, cy, err)
			}
			// Контрольное декодирование: генератор не должен выдавать невалидные чанки
			if _, err := dec.Decode(payload); err != nil {
				log.Fatalf("❌ чанк (%d,%d) не декодируется (%s): %v", cx, cy, codec.Kind(err), err)
			}

			bits := codec.BitsPerTile(len(c.Palette))
			s, ok := stats[bits]
			if !ok {
				s = &widthStats{}
				stats[bits] = s
			}
			s.chunks++
			s.bytes += len(payload)
			s.entities += c.EntityCount()
			total += len(payload)

			if *verbose {
				fmt.Printf("(%d,%d) палитра=%d бит=%d сущностей=%d байт=%d\n",
					cx, cy, len(c.Palette), bits, c.EntityCount(), len(payload))
			}
			payloads[storage.ChunkKey(*dimension, int32(cx), int32(cy))] = payload
		}
	}

	printReport(stats, len(payloads), total, *seed)

	if *storePath == "" {
		return
	}
	if err := logging.Init(logging.Options{ConsoleLevel: logging.WARN}); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer logging.Close()

	store, err := storage.NewChunkStore(*storePath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer store.Close()

	if err := store.BatchStore(context.Background(), payloads); err != nil {
		log.Fatalf("❌ сохранение: %v", err)
	}
	n, err := store.Count(storage.ChunkPrefix(*dimension))
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Printf("💾 Сохранено %d чанков в %s (всего в измерении %s: %d)\n", len(payloads), *storePath, *dimension, n)
}

func printReport(stats map[int]*widthStats, chunks, total int, seed int64) {
	widths := make([]int, 0, len(stats))
	for bits := range stats {
		widths = append(widths, bits)
	}
	sort.Ints(widths)

	fmt.Printf("🌍 Сгенерировано %d чанков, сид %d, %d байт\n", chunks, seed, total)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "бит/клетку\tчанков\tсущностей\tсредний размер")
	for _, bits := range widths {
		s := stats[bits]
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", bits, s.chunks, s.entities, s.bytes/s.chunks)
	}
	_ = tw.Flush()
}
