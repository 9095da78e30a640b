package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/dataset"
	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/matrix"
	"github.com/FlavioCFOliveira/backprop/internal/net"
	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

// MNIST digit classification: 784 -> 128 (ReLU) -> 64 (ReLU) -> 10 (Sigmoid)
// trained with MSE and per-layer SGD with momentum.
func main() {
	dataDir := flag.String("data", "./data", "directory holding the MNIST IDX files")
	trainN := flag.Int("train", 1000, "number of training samples (0 = all)")
	testN := flag.Int("test", 100, "number of test samples (0 = all)")
	epochs := flag.Int("epochs", 10, "training epochs")
	batch := flag.Int("batch", 32, "batch size")
	lr := flag.Float64("lr", 0.01, "SGD learning rate")
	momentum := flag.Float64("momentum", 0.9, "SGD momentum")
	seed := flag.Uint64("seed", 0, "weight initialization seed (0 = clock)")
	verbosity := flag.String("verbosity", "detailed", "silent, minimal or detailed")
	batchMode := flag.String("batch-mode", "per-sample", "per-sample or averaged")
	csvPath := flag.String("csv", "", "write per-epoch statistics to this CSV file")
	show := flag.Int("show", 10, "number of test predictions to visualize")
	synthetic := flag.Bool("synthetic", false, "train on generated digits instead of the IDX files")
	flag.Parse()

	v, err := net.ParseVerbosity(*verbosity)
	if err != nil {
		log.Fatalf("-verbosity: %v", err)
	}
	mode, err := net.ParseBatchMode(*batchMode)
	if err != nil {
		log.Fatalf("-batch-mode: %v", err)
	}

	fmt.Println("Loading MNIST dataset...")
	trainX, trainY, testX, testY, err := load(*dataDir, *trainN, *testN, *synthetic, *seed)
	if err != nil {
		log.Fatalf("Error: %v\nMake sure the MNIST IDX files are in %s, or pass -synthetic.", err, *dataDir)
	}
	fmt.Printf("Loaded %d training images and %d test images.\n", len(trainX), len(testX))

	network := net.NewWithConfig(net.Config{Verbosity: v, BatchMode: mode})
	sizes := []int{dataset.MNISTWidth * dataset.MNISTWidth, 128, 64, 10}
	for i := 0; i+1 < len(sizes); i++ {
		var act activations.Activation = activations.ReLU{}
		scheme := layer.HeUniform
		if i == len(sizes)-2 {
			act, scheme = activations.Sigmoid{}, layer.XavierUniform
		}
		cfg := layer.Config{LearningRate: *lr, Init: scheme}
		if *seed != 0 {
			cfg.Seed = *seed + uint64(i)
		}
		l := layer.NewDense(sizes[i], sizes[i+1], act, cfg)
		l.SetOptimizer(opt.NewSGD(*lr, *momentum))
		network.Add(l)
	}
	network.Summary(os.Stdout)

	if *csvPath != "" {
		logger := net.NewCSVLogger(*csvPath, false)
		network.AddCallback(logger)
		defer func() {
			if err := logger.Err(); err != nil {
				log.Printf("csv log: %v", err)
			}
		}()
	}

	fmt.Printf("\nTraining network...\n\n")
	if _, err := network.Train(trainX, trainY, *epochs, *batch); err != nil {
		log.Fatalf("train: %v", err)
	}

	fmt.Printf("\nEvaluating on test set...\n\n")
	correct := 0
	for i := range testX {
		prediction, err := network.Forward(testX[i])
		if err != nil {
			log.Fatalf("forward: %v", err)
		}
		if ok, _ := network.Correct(prediction, testY[i]); ok {
			correct++
		}
		if i < *show {
			if err := dataset.Visualize(os.Stdout, testX[i], prediction, testY[i], dataset.MNISTWidth); err != nil {
				log.Fatalf("visualize: %v", err)
			}
		}
	}
	if len(testX) > 0 {
		fmt.Printf("Test accuracy: %.2f%%\n", float64(correct)/float64(len(testX))*100)
	}
}

func load(dir string, trainN, testN int, synthetic bool, seed uint64) (trainX, trainY, testX, testY []*matrix.Matrix, err error) {
	if synthetic {
		if trainN <= 0 {
			trainN = 1000
		}
		if testN <= 0 {
			testN = 100
		}
		trainX, trainY = dataset.SyntheticDigits(trainN, seed+1)
		testX, testY = dataset.SyntheticDigits(testN, seed+2)
		return trainX, trainY, testX, testY, nil
	}

	files := []struct {
		name   string
		limit  int
		images bool
		dst    *[]*matrix.Matrix
	}{
		{"train-images.idx3-ubyte", trainN, true, &trainX},
		{"train-labels.idx1-ubyte", trainN, false, &trainY},
		{"t10k-images.idx3-ubyte", testN, true, &testX},
		{"t10k-labels.idx1-ubyte", testN, false, &testY},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if f.images {
			*f.dst, err = dataset.LoadIDXImages(path, f.limit)
		} else {
			*f.dst, err = dataset.LoadIDXLabels(path, 10, f.limit)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return trainX, trainY, testX, testY, nil
}
