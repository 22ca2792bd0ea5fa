package worker

import (
	"SmoothMandelbrot/mandelbrot"
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/rpc"
	"SmoothMandelbrot/task"
	"fmt"
	"time"
)

// RemoteSource is a TaskSource on the other end of a tcp rpc connection.
type RemoteSource struct {
	Client *rpc.TcpClient
}

func (rs *RemoteSource) RegisterWorker(workerAddress string, reply *misc.Nothing) error {
	return rs.Client.Call("Coordinator.RegisterWorker", workerAddress, reply)
}

func (rs *RemoteSource) DeRegisterWorker(workerAddress string, reply *misc.Nothing) error {
	return rs.Client.Call("Coordinator.DeRegisterWorker", workerAddress, reply)
}

func (rs *RemoteSource) GetMandelbrotSettings(nothing misc.Nothing, settings *mandelbrot.Settings) error {
	return rs.Client.Call("Coordinator.GetMandelbrotSettings", nothing, settings)
}

func (rs *RemoteSource) GetTask(workerAddress string, todo *task.Task) error {
	return rs.Client.Call("Coordinator.GetTask", workerAddress, todo)
}

func (rs *RemoteSource) ReturnTask(done task.Task, reply *misc.Nothing) error {
	return rs.Client.Call("Coordinator.ReturnTask", done, reply)
}

func (rs *RemoteSource) RollCall(workerAddress string, interval *time.Duration) error {
	return rs.Client.Call("Coordinator.RollCall", workerAddress, interval)
}

// NewRemoteWorker connects to the coordinator at coordinatorAddress and registers a worker there. Call ProcessTasks
// and then Close.
func NewRemoteWorker(coordinatorAddress string) (*Worker, error) {
	client := rpc.NewTcpClient(coordinatorAddress, "CoordinatorClient")
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("unable to reach coordinator at %s - %w", coordinatorAddress, err)
	}

	port, err := misc.GetFreePort()
	if err != nil {
		client.Disconnect()
		return nil, err
	}
	address := fmt.Sprintf("%s:%d", misc.LocalAddressOr("127.0.0.1"), port)

	worker, err := NewWorker(address, &RemoteSource{Client: client})
	if err != nil {
		client.Disconnect()
		return nil, err
	}
	return worker, nil
}

// Close drops the connection of a remote worker. It does nothing for local workers.
func (w *Worker) Close() error {
	if remote, ok := w.source.(*RemoteSource); ok {
		return remote.Client.Disconnect()
	}
	return nil
}
