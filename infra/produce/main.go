package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	DubService *DubService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}

	dubService := InitDubService(channel)
	if dubService == nil {
		panic("Failed to initialize Dub service")
	}

	produceInstance = &Produce{
		DubService: dubService,
	}

	return produceInstance
}

func GetProduce() *Produce {
	if produceInstance == nil {
		panic("Produce not initialized. Call InitProduce() first.")
	}
	return produceInstance
}
