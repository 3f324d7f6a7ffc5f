package attestation

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// The credential schema encodes which quest task this credential is for and
// who earned it. The registry contract stores the encoded blob opaquely.
const registryABI = `[
	{"inputs":[
		{"name":"schemaUID","type":"bytes32"},
		{"name":"recipient","type":"address"},
		{"name":"data","type":"bytes"},
		{"name":"deadline","type":"uint64"},
		{"name":"signature","type":"bytes"}],
	 "name":"attestByDelegation",
	 "outputs":[{"name":"","type":"bytes32"}],
	 "stateMutability":"payable","type":"function"},
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"recipient","type":"address"},
		{"indexed":true,"name":"attester","type":"address"},
		{"indexed":false,"name":"uid","type":"bytes32"},
		{"indexed":true,"name":"schemaUID","type":"bytes32"}],
	 "name":"Attested","type":"event"}
]`

type schemaCodec struct {
	registry  abi.ABI
	arguments abi.Arguments
}

func newSchemaCodec() (*schemaCodec, error) {
	registry, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, err
	}

	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		return nil, err
	}

	return &schemaCodec{
		registry: registry,
		arguments: abi.Arguments{
			{Name: "questId", Type: stringType},
			{Name: "taskId", Type: stringType},
			{Name: "userId", Type: stringType},
		},
	}, nil
}

type credentialData struct {
	QuestID string
	TaskID  string
	UserID  string
}

// DecodeData parses the hex-encoded schema blob the user signed. The blob
// must round-trip through the schema exactly; trailing garbage means the
// signature covers something this engine cannot vouch for.
func (c *schemaCodec) DecodeData(data string) (credentialData, error) {
	raw, err := hexutil.Decode(data)
	if err != nil {
		return credentialData{}, fmt.Errorf("invalid data encoding: %w", err)
	}

	values, err := c.arguments.Unpack(raw)
	if err != nil {
		return credentialData{}, fmt.Errorf("data does not match schema: %w", err)
	}

	if len(values) != 3 {
		return credentialData{}, fmt.Errorf("data does not match schema")
	}

	decoded := credentialData{}
	var ok bool
	if decoded.QuestID, ok = values[0].(string); !ok {
		return credentialData{}, fmt.Errorf("invalid questId field")
	}
	if decoded.TaskID, ok = values[1].(string); !ok {
		return credentialData{}, fmt.Errorf("invalid taskId field")
	}
	if decoded.UserID, ok = values[2].(string); !ok {
		return credentialData{}, fmt.Errorf("invalid userId field")
	}

	reencoded, err := c.arguments.Pack(decoded.QuestID, decoded.TaskID, decoded.UserID)
	if err != nil {
		return credentialData{}, err
	}

	if hexutil.Encode(reencoded) != strings.ToLower(data) {
		return credentialData{}, fmt.Errorf("data does not round-trip through schema")
	}

	return decoded, nil
}

// EncodeData is the inverse of DecodeData, used by clients and tests to
// build the blob a user signs.
func (c *schemaCodec) EncodeData(data credentialData) (string, error) {
	raw, err := c.arguments.Pack(data.QuestID, data.TaskID, data.UserID)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(raw), nil
}

func (c *schemaCodec) PackAttestByDelegation(
	schemaUID common.Hash, recipient common.Address, data []byte, deadline uint64, signature []byte,
) ([]byte, error) {
	return c.registry.Pack("attestByDelegation", schemaUID, recipient, data, deadline, signature)
}

func (c *schemaCodec) AttestedEvent() abi.Event {
	return c.registry.Events["Attested"]
}
