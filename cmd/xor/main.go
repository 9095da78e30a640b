package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/matrix"
	"github.com/FlavioCFOliveira/backprop/internal/net"
	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

func main() {
	epochs := flag.Int("epochs", 1000, "training epochs")
	lr := flag.Float64("lr", 0.1, "SGD learning rate")
	seed := flag.Uint64("seed", 42, "weight initialization seed")
	flag.Parse()

	fmt.Println("=== XOR Training Example ===")

	// The XOR function cannot be solved by a single-layer perceptron
	// but can be solved by a multi-layer perceptron with hidden layers
	in, hidden, out := 2, 3, 1
	fmt.Printf("Network architecture: %d-%d-%d\n", in, hidden, out)
	fmt.Println("Activation functions: ReLU (hidden), Sigmoid (output)")
	fmt.Println("Loss function: MSE")
	fmt.Printf("Optimizer: SGD with learning rate %g\n\n", *lr)

	l1 := layer.NewDense(in, hidden, activations.ReLU{}, layer.Config{Init: layer.HeUniform, Seed: *seed})
	l2 := layer.NewDense(hidden, out, activations.Sigmoid{}, layer.Config{Init: layer.XavierUniform, Seed: *seed + 1})
	l1.SetOptimizer(opt.NewSGD(*lr, 0))
	l2.SetOptimizer(opt.NewSGD(*lr, 0))

	network := net.NewWithConfig(net.Config{Verbosity: net.Silent}, l1, l2)

	trainX := []*matrix.Matrix{
		matrix.Column(0, 0),
		matrix.Column(0, 1),
		matrix.Column(1, 0),
		matrix.Column(1, 1),
	}
	trainY := []*matrix.Matrix{
		matrix.Column(0),
		matrix.Column(1),
		matrix.Column(1),
		matrix.Column(0),
	}

	stats, err := network.Train(trainX, trainY, *epochs, 1)
	if err != nil {
		log.Fatalf("train: %v", err)
	}
	for _, s := range stats {
		if (s.Epoch-1)%100 == 0 || s.Epoch == len(stats) {
			fmt.Printf("Epoch %d, Loss: %.6f\n", s.Epoch, s.Loss)
		}
	}

	fmt.Println("\nTesting trained network:")
	for i := range trainX {
		pred, err := network.Forward(trainX[i])
		if err != nil {
			log.Fatalf("forward: %v", err)
		}
		p, _ := pred.At(0, 0)
		x := trainX[i].Values()
		y, _ := trainY[i].At(0, 0)
		fmt.Printf("Input: %v, Predicted: %.4f, Target: %v\n", x, p, y)
	}

	fmt.Println()
	network.Summary(os.Stdout)
}
