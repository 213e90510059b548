package config

type WorkerKeyStruct struct {
	GeocodeQueue string
}

var WorkerKey = &WorkerKeyStruct{
	GeocodeQueue: "geocode_queue",
}
