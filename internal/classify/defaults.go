package classify

// Table names, one per detector concern.
const (
	TableConcernLayers  = "separation_of_concerns.layers"
	TableConcernDomains = "separation_of_concerns.domains"
	TableInfoHiding     = "information_hiding"
	TableDependencyInv  = "dependency_inversion"
	TableLayered        = "layered"
	TableHexagonal      = "hexagonal"
	TableClean          = "clean_architecture"
	TableMicroservices  = "microservices"
	TableEventDriven    = "event_driven"
)

// Separation of concerns layer labels.
const (
	LayerTest       = "test"
	LayerException  = "exception"
	LayerConfig     = "config"
	LayerController = "controller"
	LayerView       = "view"
	LayerRepository = "repository"
	LayerService    = "service"
	LayerModel      = "model"
	LayerUtil       = "util"
)

// Information hiding labels.
const (
	HidingInternal       = "internal"
	HidingInterface      = "interface"
	HidingImplementation = "implementation"
)

// Dependency inversion labels.
const (
	DIPInjector    = "injector"
	DIPFactory     = "factory"
	DIPAbstraction = "abstraction"
)

// Layered style labels.
const (
	LayeredPresentation = "presentation"
	LayeredBusiness     = "business"
	LayeredDataAccess   = "data_access"
	LayeredDomain       = "domain"
)

// Hexagonal style labels.
const (
	HexPort           = "port"
	HexDomain         = "domain"
	HexAdapter        = "adapter"
	HexInfrastructure = "infrastructure"
)

// Clean architecture labels.
const (
	CleanEntity    = "entity"
	CleanUseCase   = "usecase"
	CleanAdapter   = "adapter"
	CleanFramework = "framework"
)

// Microservice indicator labels. They are checked independently with Table.Matches.
const (
	ServiceAPI           = "api"
	ServiceDatabase      = "database"
	ServiceContainer     = "container"
	ServiceCommunication = "communication"
)

// Event-driven labels.
const (
	EventBroker         = "broker"
	EventStore          = "event_store"
	EventCommandHandler = "command_handler"
	EventQueryHandler   = "query_handler"
	EventConsumer       = "consumer"
	EventProducer       = "producer"
	EventMessage        = "event"
)

// DefaultDomains is the business vocabulary used for domain grouping.
var DefaultDomains = []string{
	"user", "order", "payment", "product", "customer", "inventory", "auth", "account",
	"cart", "invoice", "notification", "shipping", "billing", "catalog", "report",
}

// DefaultBrokers are message-broker product names resolved to external:// references.
var DefaultBrokers = []string{
	"kafka", "sarama", "rabbitmq", "amqp", "nats", "redis", "sqs", "sns", "kinesis",
	"pubsub", "eventbridge", "pulsar", "activemq", "mqtt", "zeromq", "nsq", "eventstore",
}

func concernLayerRules() []Rule {
	return []Rule{
		{Label: LayerTest, Patterns: []string{`^tests?$`, `_test$`, `^test_`, `_spec$`, `^specs?$`, `^__tests__$`, `^mocks?$`, `^fixtures?$`}},
		{Label: LayerException, Patterns: []string{`exception`, `^errors?$`, `_errors?$`, `^errs?$`, `fault`}},
		{Label: LayerConfig, Patterns: []string{`^config`, `^conf$`, `settings`, `configuration`, `^env$`, `properties`}},
		{Label: LayerController, Patterns: []string{`controller`, `handler`, `^routes?$`, `router`, `endpoint`, `^api$`}},
		{Label: LayerView, Patterns: []string{`views?$`, `^templates?$`, `^pages?$`, `^components?$`, `^ui$`, `presenter`, `screen`, `widget`}},
		{Label: LayerRepository, Patterns: []string{`repositor`, `^repos?$`, `dao$`, `^dal$`, `persistence`, `^store$`, `storage`, `^db$`, `database`}},
		{Label: LayerService, Patterns: []string{`service`, `use_?case`, `interactor`, `^logic$`, `manager$`}},
		{Label: LayerModel, Patterns: []string{`models?$`, `entit`, `^domain$`, `schema`, `^dtos?$`, `dto$`, `^types$`}},
		{Label: LayerUtil, Patterns: []string{`util`, `helpers?`, `^common$`, `^shared$`, `^lib$`}},
	}
}

func concernDomainRules() []Rule {
	rules := make([]Rule, len(DefaultDomains))
	for i, d := range DefaultDomains {
		rules[i] = Rule{Label: d, Patterns: []string{d}}
	}
	return rules
}

func infoHidingRules() []Rule {
	return []Rule{
		{Label: HidingInternal, Patterns: []string{`^internal$`, `^private$`, `^_[a-z]`}},
		{Label: HidingInterface, Patterns: []string{`interface`, `contract`, `^api$`, `^ports?$`, `^spi$`, `protocol`, `\.d$`}},
		{Label: HidingImplementation, Patterns: []string{`impl`, `^default`, `concrete`}},
	}
}

func dependencyInversionRules() []Rule {
	return []Rule{
		{Label: DIPInjector, Patterns: []string{`inject`, `^di$`, `container`, `^wire`, `^providers?$`, `composition_?root`}},
		{Label: DIPFactory, Patterns: []string{`factor(y|ies)`, `builder`, `creator`}},
		{Label: DIPAbstraction, Patterns: []string{`interface`, `abstract`, `contract`, `^ports?$`, `protocol`, `^spi$`}},
	}
}

func layeredRules() []Rule {
	return []Rule{
		{Label: LayeredPresentation, Patterns: []string{`controller`, `handler`, `views?$`, `^ui$`, `^web$`, `^api$`, `^routes?$`, `presentation`, `^pages?$`, `^components?$`, `template`, `presenter`, `^cli$`}},
		{Label: LayeredDataAccess, Patterns: []string{`repositor`, `dao`, `^dal$`, `data_?access`, `persistence`, `^db$`, `database`, `^store$`, `storage`, `migration`, `^sql$`}},
		{Label: LayeredBusiness, Patterns: []string{`service`, `business`, `^logic$`, `use_?case`, `^application$`, `manager$`, `workflow`}},
		{Label: LayeredDomain, Patterns: []string{`^domain$`, `models?$`, `entit`, `^core$`}},
	}
}

func hexagonalRules() []Rule {
	return []Rule{
		{Label: HexPort, Patterns: []string{`^ports?$`, `[_-]port$`, `^port[_-]`, `^spi$`, `^contracts?$`}},
		{Label: HexDomain, Patterns: []string{`^domain$`, `^core$`, `^models?$`, `entit`, `aggregate`, `value_?objects?`}, Unless: []string{HexAdapter}},
		{Label: HexAdapter, Patterns: []string{`adapter`, `^driving$`, `^driven$`, `^primary$`, `^secondary$`, `controller`, `handler`, `^rest$`, `^http$`, `^grpc$`, `^cli$`, `^web$`, `impl$`, `client`}},
		{Label: HexInfrastructure, Patterns: []string{`infra`, `^config`, `^db$`, `database`, `persistence`, `messaging`, `^platform$`, `^bootstrap$`, `^cmd$`, `^main$`}},
	}
}

func cleanRules() []Rule {
	return []Rule{
		{Label: CleanUseCase, Patterns: []string{`use_?cases?`, `interactor`, `^application$`, `^services?$`}},
		{Label: CleanEntity, Patterns: []string{`entit`, `^domain$`, `^models?$`, `^core$`, `enterprise`, `aggregate`, `value_?objects?`}},
		{Label: CleanAdapter, Patterns: []string{`adapter`, `controller`, `presenter`, `gateway`, `repositor`, `handler`, `^api$`, `^rest$`, `^grpc$`, `^http$`, `serializer`, `viewmodel`}},
		{Label: CleanFramework, Patterns: []string{`framework`, `infra`, `^drivers?$`, `^db$`, `database`, `^web$`, `^ui$`, `^external$`, `^config`, `^cmd$`, `^main$`, `^platform$`, `^server$`}},
	}
}

func microserviceRules() []Rule {
	return []Rule{
		{Label: ServiceAPI, Patterns: []string{`^api$`, `controller`, `handler`, `^routes?$`, `router`, `endpoint`, `openapi`, `swagger`, `graphql`, `^grpc$`, `^rest$`, `^server$`}},
		{Label: ServiceDatabase, Patterns: []string{`repositor`, `^db$`, `database`, `migration`, `schema`, `persistence`, `^models?$`, `sql`, `mongo`, `postgres`, `mysql`, `dynamo`}},
		{Label: ServiceContainer, Patterns: []string{`dockerfile`, `docker`, `compose`, `k8s`, `kubernetes`, `helm`, `deployment`, `^charts?$`}},
		{Label: ServiceCommunication, Patterns: []string{`client`, `grpc`, `kafka`, `rabbit`, `amqp`, `nats`, `queue`, `publisher`, `consumer`, `event`, `message`, `discovery`, `consul`, `gateway`, `feign`}},
	}
}

func eventDrivenRules() []Rule {
	return []Rule{
		{Label: EventBroker, Patterns: []string{`broker`, `kafka`, `rabbit`, `amqp`, `nats`, `^bus$`, `event_?bus`, `message_?bus`, `pub_?sub`, `sqs`, `sns`, `kinesis`, `pulsar`, `mqtt`, `^queues?$`, `message_?queue`}},
		{Label: EventStore, Patterns: []string{`event_?store`, `event_?sourc`, `event_?log`, `journal`}},
		{Label: EventCommandHandler, Patterns: []string{`command_?handler`, `^commands?$`, `command$`}},
		{Label: EventQueryHandler, Patterns: []string{`query_?handler`, `^quer(y|ies)$`, `query$`, `^projections?$`, `read_?model`}},
		{Label: EventConsumer, Patterns: []string{`consumer`, `subscriber`, `listener`, `event_?handler`, `reactor`, `worker`}},
		{Label: EventProducer, Patterns: []string{`producer`, `publisher`, `emitter`, `dispatcher`, `notifier`, `outbox`}},
		{Label: EventMessage, Patterns: []string{`^events?$`, `event$`, `_event`, `^messages?$`}},
	}
}
